package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultSessionTTL is applied when no configuration override is given
const DefaultSessionTTL = 30 * 24 * time.Hour

// Sessions manages server side login sessions. Expired rows are resolved to
// nothing but are not removed here; removal happens on logout or through an
// external sweep.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*Session, error)
	CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ttl time.Duration) (*Session, error)
	Resolve(ctx context.Context, id uuid.UUID) (*Session, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	DestroyTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type sessions struct {
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{db: db}
}

func (s *sessions) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*Session, error) {
	return s.CreateTx(ctx, s.db, userID, ttl)
}

func (s *sessions) CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	record := &Session{
		ID:             uuid.New(),
		UserID:         userID,
		ExpirationDate: time.Now().Add(ttl),
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

// Resolve returns the session strictly while now < expiration_date. Expired
// sessions resolve to ErrUnableToFindSession without being deleted.
func (s *sessions) Resolve(ctx context.Context, id uuid.UUID) (*Session, error) {
	record := &Session{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnableToFindSession
		}
		return nil, err
	}

	if record.Expired(time.Now()) {
		return nil, ErrUnableToFindSession
	}

	return record, nil
}

func (s *sessions) Destroy(ctx context.Context, id uuid.UUID) error {
	return s.DestroyTx(ctx, s.db, id)
}

// DestroyTx is idempotent; a missing row is not an error
func (s *sessions) DestroyTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}
