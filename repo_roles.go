package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles answers role and permission questions against the reference data
// seeded by SeedAccessControl.
type Roles interface {
	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	Assign(ctx context.Context, userID uuid.UUID, roleName string) error
	AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roleName string) error
	UserHasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error)
	UserHasPermission(ctx context.Context, userID uuid.UUID, action, entity, access string) (bool, error)
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

// GetByNameTx treats a missing role as seed data corruption, which is a
// fatal configuration error rather than user input.
func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewMissingRoleError(name)
		}
		return nil, err
	}
	return record, nil
}

func (r *roles) Assign(ctx context.Context, userID uuid.UUID, roleName string) error {
	return r.AssignTx(ctx, r.db, userID, roleName)
}

func (r *roles) AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roleName string) error {
	role, err := r.GetByNameTx(ctx, tx, roleName)
	if err != nil {
		return err
	}

	_, err = tx.NewInsert().
		Model(&RoleUser{UserID: userID, RoleID: role.ID}).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *roles) UserHasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*RoleUser)(nil)).
		Join("JOIN roles AS rol ON rol.id = ?TableAlias.role_id").
		Where("?TableAlias.user_id = ?", userID).
		Where("rol.name = ?", roleName).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UserHasPermission is true iff some role assigned to the user carries a
// permission matching (action, entity, access) exactly. Ownership checks for
// access "own" are the caller's responsibility.
func (r *roles) UserHasPermission(ctx context.Context, userID uuid.UUID, action, entity, access string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*RoleUser)(nil)).
		Join("JOIN permission_roles AS prl ON prl.role_id = ?TableAlias.role_id").
		Join("JOIN permissions AS prm ON prm.id = prl.permission_id").
		Where("?TableAlias.user_id = ?", userID).
		Where("prm.action = ?", action).
		Where("prm.entity = ?", entity).
		Where("prm.access = ?", access).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
