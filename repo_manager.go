package account

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories and the transaction primitive
// multi step flows run inside.
type RepositoryManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
	Users() Users
	Sessions() Sessions
	Verifications() Verifications
	Connections() Connections
	Roles() Roles
	Notes() Notes
}

type mngr struct {
	db            *bun.DB
	users         Users
	sessions      Sessions
	verifications Verifications
	connections   Connections
	roles         Roles
	notes         Notes
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	RegisterModels(db)
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		sessions:      NewSessionsRepository(db),
		verifications: NewVerificationsRepository(db),
		connections:   NewConnectionsRepository(db),
		roles:         NewRolesRepository(db),
		notes:         NewNotesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.verifications == nil {
		return errors.New("repository verifications should be initialized")
	}

	if m.connections == nil {
		return errors.New("repository connections should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	if m.notes == nil {
		return errors.New("repository notes should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users                 { return m.users }
func (m mngr) Sessions() Sessions           { return m.sessions }
func (m mngr) Verifications() Verifications { return m.verifications }
func (m mngr) Connections() Connections     { return m.connections }
func (m mngr) Roles() Roles                 { return m.roles }
func (m mngr) Notes() Notes                 { return m.notes }
