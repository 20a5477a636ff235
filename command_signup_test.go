package account_test

import (
	"context"
	"sync"
	"testing"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupHandler(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	sink := &capturingSink{}
	handler := account.NewSignupHandler(repo, account.DefaultConfig()).WithActivitySink(sink)

	var resp *account.SignupResponse
	err := handler.Execute(ctx, account.SignupMessage{
		Email:    "ada@example.com",
		Username: "ada",
		Name:     "Ada Lovelace",
		Password: "super secret",
		OnResponse: func(r *account.SignupResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.User)
	require.NotNil(t, resp.Session)

	// password is stored and verifiable
	verifier := account.NewCredentialVerifier(repo)
	_, err = verifier.VerifyPassword(ctx, "ada@example.com", "super secret")
	require.NoError(t, err)

	// default role assigned
	hasRole, err := repo.Roles().UserHasRole(ctx, resp.User.ID, account.RoleNameUser)
	require.NoError(t, err)
	assert.True(t, hasRole)

	// session is live
	session, err := repo.Sessions().Resolve(ctx, resp.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, session.UserID)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, account.ActivityEventSignup, events[0].EventType)
}

func TestSignupHandlerDerivesUsername(t *testing.T) {
	repo := setupRepo(t)

	handler := account.NewSignupHandler(repo, account.DefaultConfig())

	var resp *account.SignupResponse
	err := handler.Execute(context.Background(), account.SignupMessage{
		Email:    "ada@example.com",
		Password: "super secret",
		OnResponse: func(r *account.SignupResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "ada", resp.User.Username)
}

func TestSignupHandlerDuplicateRollsBack(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	createUser(t, repo, "ada@example.com", "ada")

	handler := account.NewSignupHandler(repo, account.DefaultConfig())

	err := handler.Execute(ctx, account.SignupMessage{
		Email:    "ada@example.com",
		Username: "ada2",
		Password: "super secret",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, account.TextCodeDuplicateIdentity, richErr.TextCode)

	// nothing from the failed signup survives
	_, err = repo.Users().GetByIdentifier(ctx, "ada2")
	assert.ErrorIs(t, err, account.ErrIdentityNotFound)
}

func TestSignupHandlerEmptyPassword(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	handler := account.NewSignupHandler(repo, account.DefaultConfig())

	err := handler.Execute(ctx, account.SignupMessage{
		Email:    "ada@example.com",
		Username: "ada",
	})
	assert.ErrorIs(t, err, account.ErrNoEmptyString)

	_, err = repo.Users().GetByIdentifier(ctx, "ada@example.com")
	assert.ErrorIs(t, err, account.ErrIdentityNotFound, "user row rolled back")
}

func TestSignupHandlerConcurrentSameUsername(t *testing.T) {
	db := setupDB(t)
	repo := account.NewRepositoryManager(db)
	ctx := context.Background()

	handler := account.NewSignupHandler(repo, account.DefaultConfig())

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- handler.Execute(ctx, account.SignupMessage{
				Email:    "ada@example.com",
				Username: "ada",
				Password: "super secret",
			})
		}()
	}
	wg.Wait()
	close(results)

	var failures []error
	for err := range results {
		if err != nil {
			failures = append(failures, err)
		}
	}

	// exactly one signup wins; the loser surfaces the duplicate conflict
	require.Len(t, failures, 1)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(failures[0], &richErr))
	assert.Equal(t, account.TextCodeDuplicateIdentity, richErr.TextCode)

	count, err := db.NewSelect().
		Model((*account.User)(nil)).
		Where("?TableAlias.username = ?", "ada").
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignupHandlerCancelledContext(t *testing.T) {
	repo := setupRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := account.NewSignupHandler(repo, account.DefaultConfig())
	err := handler.Execute(ctx, account.SignupMessage{
		Email:    "ada@example.com",
		Password: "super secret",
	})
	assert.Error(t, err)
}
