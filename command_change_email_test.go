package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changeEmailFixture(t *testing.T) (account.RepositoryManager, *account.VerificationLedger, *account.MemoryStore, *capturingMailer, *account.ChangeEmailHandler) {
	t.Helper()

	repo := setupRepo(t)
	ledger := account.NewVerificationLedger(repo, account.DefaultConfig())
	store := account.NewMemoryStore()
	mailer := &capturingMailer{}
	handler := account.NewChangeEmailHandler(repo, ledger, store, mailer)

	return repo, ledger, store, mailer, handler
}

func TestChangeEmailHandler(t *testing.T) {
	repo, ledger, store, mailer, handler := changeEmailFixture(t)
	ctx := context.Background()

	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	sink := &capturingSink{}
	handler = handler.WithActivitySink(sink)

	require.NoError(t, handler.StashPendingEmail(ctx, user.ID, "new@example.com", time.Hour))
	require.NoError(t, ledger.MarkVerified(ctx, store, user.ID.String(), account.VerificationTypeChangeEmail))

	var resp *account.ChangeEmailResponse
	err := handler.Execute(ctx, account.ChangeEmailMessage{
		UserID: user.ID,
		OnResponse: func(r *account.ChangeEmailResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "old@example.com", resp.OldEmail)
	assert.Equal(t, "new@example.com", resp.NewEmail)

	found, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", found.Email)

	// the notice goes to the address the account had before the change
	require.Len(t, mailer.to, 1)
	assert.Equal(t, "old@example.com", mailer.to[0])

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, account.ActivityEventEmailChanged, events[0].EventType)
}

func TestChangeEmailHandlerRequiresRecentVerification(t *testing.T) {
	repo, _, _, _, handler := changeEmailFixture(t)
	ctx := context.Background()

	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	require.NoError(t, handler.StashPendingEmail(ctx, user.ID, "new@example.com", time.Hour))

	err := handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID})
	assert.ErrorIs(t, err, account.ErrRecentVerificationRequired)

	found, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", found.Email, "email unchanged")
}

func TestChangeEmailHandlerRequiresPendingAddress(t *testing.T) {
	repo, ledger, store, _, handler := changeEmailFixture(t)
	ctx := context.Background()

	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	require.NoError(t, ledger.MarkVerified(ctx, store, user.ID.String(), account.VerificationTypeChangeEmail))

	err := handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryBadInput, richErr.Category)
}

func TestChangeEmailHandlerConsumesMarkers(t *testing.T) {
	repo, ledger, store, _, handler := changeEmailFixture(t)
	ctx := context.Background()

	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	require.NoError(t, handler.StashPendingEmail(ctx, user.ID, "new@example.com", time.Hour))
	require.NoError(t, ledger.MarkVerified(ctx, store, user.ID.String(), account.VerificationTypeChangeEmail))

	require.NoError(t, handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID}))

	// the one shot markers are gone; replaying the message fails the gate
	err := handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID})
	assert.ErrorIs(t, err, account.ErrRecentVerificationRequired)
}

func TestChangeEmailHandlerDuplicateTarget(t *testing.T) {
	repo, ledger, store, _, handler := changeEmailFixture(t)
	ctx := context.Background()

	createUser(t, repo, "taken@example.com", "taken")
	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	require.NoError(t, handler.StashPendingEmail(ctx, user.ID, "taken@example.com", time.Hour))
	require.NoError(t, ledger.MarkVerified(ctx, store, user.ID.String(), account.VerificationTypeChangeEmail))

	err := handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, account.TextCodeDuplicateIdentity, richErr.TextCode)

	found, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", found.Email)
}

func TestChangeEmailHandlerMailerFailureDoesNotFail(t *testing.T) {
	repo, ledger, store, mailer, handler := changeEmailFixture(t)
	ctx := context.Background()

	mailer.err = errors.New("smtp unavailable")

	user := createUserWithPassword(t, repo, "old@example.com", "ada", "super secret")

	require.NoError(t, handler.StashPendingEmail(ctx, user.ID, "new@example.com", time.Hour))
	require.NoError(t, ledger.MarkVerified(ctx, store, user.ID.String(), account.VerificationTypeChangeEmail))

	err := handler.Execute(ctx, account.ChangeEmailMessage{UserID: user.ID})
	require.NoError(t, err)

	found, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", found.Email)
}
