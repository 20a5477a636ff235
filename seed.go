package account

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var seedActions = []string{"create", "read", "update", "delete"}
var seedEntities = []string{"user", "note"}

// SeedAccessControl inserts the role and permission reference data: every
// (action, entity, access) permission, an "admin" role holding the "any"
// scope, and a "user" role holding the "own" scope. Safe to call more than
// once.
func SeedAccessControl(ctx context.Context, db *bun.DB) error {
	RegisterModels(db)

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ownIDs := make([]uuid.UUID, 0, len(seedActions)*len(seedEntities))
		anyIDs := make([]uuid.UUID, 0, len(seedActions)*len(seedEntities))

		for _, entity := range seedEntities {
			for _, action := range seedActions {
				for _, access := range []string{AccessOwn, AccessAny} {
					id, err := ensurePermission(ctx, tx, action, entity, access)
					if err != nil {
						return err
					}
					if access == AccessOwn {
						ownIDs = append(ownIDs, id)
					} else {
						anyIDs = append(anyIDs, id)
					}
				}
			}
		}

		userRole, err := ensureRole(ctx, tx, RoleNameUser, "default role for signed up accounts")
		if err != nil {
			return err
		}
		adminRole, err := ensureRole(ctx, tx, RoleNameAdmin, "administrative access to any resource")
		if err != nil {
			return err
		}

		if err := ensureRolePermissions(ctx, tx, userRole, ownIDs); err != nil {
			return err
		}
		if err := ensureRolePermissions(ctx, tx, adminRole, anyIDs); err != nil {
			return err
		}

		return nil
	})
}

func ensurePermission(ctx context.Context, tx bun.IDB, action, entity, access string) (uuid.UUID, error) {
	record := &Permission{
		ID:          uuid.New(),
		Action:      action,
		Entity:      entity,
		Access:      access,
		Description: fmt.Sprintf("%s %s %s", action, access, entity),
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (action, entity, access) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed permission")
	}

	existing := &Permission{}
	err = tx.NewSelect().
		Model(existing).
		Where("?TableAlias.action = ? AND ?TableAlias.entity = ? AND ?TableAlias.access = ?", action, entity, access).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read seeded permission")
	}

	return existing.ID, nil
}

func ensureRole(ctx context.Context, tx bun.IDB, name, description string) (*Role, error) {
	record := &Role{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed role")
	}

	existing := &Role{}
	err = tx.NewSelect().
		Model(existing).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read seeded role")
	}

	return existing, nil
}

func ensureRolePermissions(ctx context.Context, tx bun.IDB, role *Role, permissionIDs []uuid.UUID) error {
	for _, pid := range permissionIDs {
		_, err := tx.NewInsert().
			Model(&PermissionRole{PermissionID: pid, RoleID: role.ID}).
			On("CONFLICT (permission_id, role_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed role permission")
		}
	}
	return nil
}
