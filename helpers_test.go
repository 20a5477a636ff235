package account_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, account.CreateSchema(ctx, db))
	require.NoError(t, account.SeedAccessControl(ctx, db))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func setupRepo(t *testing.T) account.RepositoryManager {
	t.Helper()
	return account.NewRepositoryManager(setupDB(t))
}

func createUser(t *testing.T, repo account.RepositoryManager, email, username string) *account.User {
	t.Helper()

	user, err := repo.Users().Create(context.Background(), &account.User{
		Email:    email,
		Username: username,
		Name:     "Test User",
	})
	require.NoError(t, err)

	return user
}

func createUserWithPassword(t *testing.T, repo account.RepositoryManager, email, username, password string) *account.User {
	t.Helper()

	user := createUser(t, repo, email, username)

	hash, err := account.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, repo.Users().SetPassword(context.Background(), user.ID, hash))

	return user
}

type capturingSink struct {
	mu     sync.Mutex
	events []account.ActivityEvent
}

func (s *capturingSink) Record(_ context.Context, event account.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSink) Events() []account.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]account.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

type capturingMailer struct {
	to      []string
	subject []string
	content []string
	err     error
}

func (m *capturingMailer) SendEmail(_ context.Context, to, subject, content string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.content = append(m.content, content)
	return nil
}

type stubDownloader struct {
	file *account.File
	err  error
}

func (d *stubDownloader) DownloadFile(context.Context, string) (*account.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.file, nil
}

var errDownloadFailed = errors.New("download failed")
