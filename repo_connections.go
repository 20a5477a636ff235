package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Connections links external identity provider accounts to local users
type Connections interface {
	Link(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (*Connection, error)
	LinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider, providerUserID string) (*Connection, error)
	FindUserByProvider(ctx context.Context, provider, providerUserID string) (uuid.UUID, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Connection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type connections struct {
	db *bun.DB
}

var _ Connections = (*connections)(nil)

func NewConnectionsRepository(db *bun.DB) Connections {
	return &connections{db: db}
}

func (c *connections) Link(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (*Connection, error) {
	return c.LinkTx(ctx, c.db, userID, provider, providerUserID)
}

// LinkTx attaches an external identity to a user. The same
// (provider, provider_user_id) pair bound to a different user is a conflict;
// re-linking the pair to the same user is an idempotent no-op.
func (c *connections) LinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, provider, providerUserID string) (*Connection, error) {
	existing := &Connection{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.provider = ? AND ?TableAlias.provider_user_id = ?", provider, providerUserID).
		Limit(1).
		Scan(ctx)
	if err == nil {
		if existing.UserID == userID {
			return existing, nil
		}
		return nil, NewDuplicateConnectionError(nil)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	record := &Connection{
		ID:             uuid.New(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		UserID:         userID,
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		// lost the race on the unique index
		if IsUniqueViolation(err) {
			return nil, NewDuplicateConnectionError(err)
		}
		return nil, err
	}

	return record, nil
}

func (c *connections) FindUserByProvider(ctx context.Context, provider, providerUserID string) (uuid.UUID, error) {
	record := &Connection{}
	err := c.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ? AND ?TableAlias.provider_user_id = ?", provider, providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrIdentityNotFound
		}
		return uuid.Nil, err
	}
	return record.UserID, nil
}

func (c *connections) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Connection, error) {
	var records []*Connection
	err := c.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*Connection{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (c *connections) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.NewDelete().
		Model((*Connection)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}
