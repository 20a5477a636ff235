package account

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNoteNotFound is returned for missing note lookups
var ErrNoteNotFound = goerrors.New("note not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// Notes is the storage surface for notes and their image attachments
type Notes interface {
	Create(ctx context.Context, note *Note) (*Note, error)
	CreateTx(ctx context.Context, tx bun.IDB, note *Note) (*Note, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Note, error)
	Update(ctx context.Context, note *Note) (*Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type notes struct {
	db *bun.DB
}

var _ Notes = (*notes)(nil)

func NewNotesRepository(db *bun.DB) Notes {
	return &notes{db: db}
}

func (n *notes) Create(ctx context.Context, note *Note) (*Note, error) {
	return n.CreateTx(ctx, n.db, note)
}

// CreateTx inserts the note and any attached images in one statement batch
func (n *notes) CreateTx(ctx context.Context, tx bun.IDB, note *Note) (*Note, error) {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(note).Exec(ctx); err != nil {
		return nil, err
	}

	for _, image := range note.Images {
		if image.ID == uuid.Nil {
			image.ID = uuid.New()
		}
		image.NoteID = note.ID
	}

	if len(note.Images) > 0 {
		if _, err := tx.NewInsert().Model(&note.Images).Exec(ctx); err != nil {
			return nil, err
		}
	}

	return note, nil
}

func (n *notes) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	record := &Note{}
	err := n.db.NewSelect().
		Model(record).
		Relation("Images").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return record, nil
}

func (n *notes) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Note, error) {
	var records []*Note
	err := n.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*Note{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (n *notes) Update(ctx context.Context, note *Note) (*Note, error) {
	res, err := n.db.NewUpdate().
		Model((*Note)(nil)).
		Set("title = ?", note.Title).
		Set("content = ?", note.Content).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", note.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNoteNotFound
	}

	return note, nil
}

func (n *notes) Delete(ctx context.Context, id uuid.UUID) error {
	return n.DeleteTx(ctx, n.db, id)
}

// DeleteTx removes the note; note_images cascade at the storage layer
func (n *notes) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Note)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}
