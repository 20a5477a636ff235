package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the storage surface for user rows and their passwords
type Users interface {
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
	UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error
	SetPassword(ctx context.Context, userID uuid.UUID, hash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, hash string) error
	GetPassword(ctx context.Context, userID uuid.UUID) (*Password, error)
	GetPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Password, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Normalize()

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, NewDuplicateIdentityError(err)
		}
		return nil, err
	}

	return user, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

// GetByIdentifierTx resolves a user through a flexible selector: uuid, email
// or username, tried in that order.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		return nil, ErrIdentityNotFound
	}

	for _, opt := range options {
		record := &User{}
		err := tx.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, ErrIdentityNotFound
}

func (a *users) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return a.UpdateEmailTx(ctx, a.db, id, email)
}

func (a *users) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return NewDuplicateIdentityError(err)
		}
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

func (a *users) SetPassword(ctx context.Context, userID uuid.UUID, hash string) error {
	return a.SetPasswordTx(ctx, a.db, userID, hash)
}

// SetPasswordTx upserts the password row, silently overwriting any prior
// hash for the user.
func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, hash string) error {
	_, err := tx.NewInsert().
		Model(&Password{UserID: userID, Hash: hash}).
		On("CONFLICT (user_id) DO UPDATE").
		Set("hash = EXCLUDED.hash").
		Exec(ctx)
	return err
}

func (a *users) GetPassword(ctx context.Context, userID uuid.UUID) (*Password, error) {
	return a.GetPasswordTx(ctx, a.db, userID)
}

func (a *users) GetPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Password, error) {
	record := &Password{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return record, nil
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

// DeleteTx removes the user row; the storage layer cascades the delete to
// passwords, sessions, connections, notes, images and role joins.
func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  strings.ToLower(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  strings.ToLower(trimmed),
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
