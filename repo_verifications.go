package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Verifications stores pending one time code challenges keyed by
// (target, type).
type Verifications interface {
	Upsert(ctx context.Context, record *Verification) (*Verification, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Verification) (*Verification, error)
	Find(ctx context.Context, target, vtype string) (*Verification, error)
	FindTx(ctx context.Context, tx bun.IDB, target, vtype string) (*Verification, error)
	Delete(ctx context.Context, target, vtype string) error
	DeleteTx(ctx context.Context, tx bun.IDB, target, vtype string) error
}

type verifications struct {
	db *bun.DB
}

var _ Verifications = (*verifications)(nil)

func NewVerificationsRepository(db *bun.DB) Verifications {
	return &verifications{db: db}
}

func (v *verifications) Upsert(ctx context.Context, record *Verification) (*Verification, error) {
	return v.UpsertTx(ctx, v.db, record)
}

// UpsertTx inserts the record, replacing any live challenge for the same
// (target, type) pair. The previous secret is discarded; only the latest
// challenge validates.
func (v *verifications) UpsertTx(ctx context.Context, tx bun.IDB, record *Verification) (*Verification, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (target, type) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("secret = EXCLUDED.secret").
		Set("algorithm = EXCLUDED.algorithm").
		Set("digits = EXCLUDED.digits").
		Set("period = EXCLUDED.period").
		Set("char_set = EXCLUDED.char_set").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (v *verifications) Find(ctx context.Context, target, vtype string) (*Verification, error) {
	return v.FindTx(ctx, v.db, target, vtype)
}

func (v *verifications) FindTx(ctx context.Context, tx bun.IDB, target, vtype string) (*Verification, error) {
	record := &Verification{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.target = ? AND ?TableAlias.type = ?", target, vtype).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (v *verifications) Delete(ctx context.Context, target, vtype string) error {
	return v.DeleteTx(ctx, v.db, target, vtype)
}

// DeleteTx is idempotent; consuming an already deleted challenge is a no-op
func (v *verifications) DeleteTx(ctx context.Context, tx bun.IDB, target, vtype string) error {
	_, err := tx.NewDelete().
		Model((*Verification)(nil)).
		Where("?TableAlias.target = ? AND ?TableAlias.type = ?", target, vtype).
		Exec(ctx)
	return err
}
