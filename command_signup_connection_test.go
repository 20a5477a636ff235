package account_test

import (
	"context"
	"testing"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupWithConnectionHandler(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	sink := &capturingSink{}
	handler := account.NewSignupWithConnectionHandler(repo, account.DefaultConfig()).
		WithActivitySink(sink)

	var resp *account.SignupWithConnectionResponse
	err := handler.Execute(ctx, account.SignupWithConnectionMessage{
		Email:          "ada@example.com",
		Name:           "Ada Lovelace",
		Provider:       "github",
		ProviderUserID: "gh-1",
		OnResponse: func(r *account.SignupWithConnectionResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.User)
	require.NotNil(t, resp.Connection)
	require.NotNil(t, resp.Session)

	// the connection resolves back to the new user
	found, err := repo.Connections().FindUserByProvider(ctx, "github", "gh-1")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, found)

	// no password row; the account authenticates through the provider only
	_, err = repo.Users().GetPassword(ctx, resp.User.ID)
	assert.ErrorIs(t, err, account.ErrIdentityNotFound)

	hasRole, err := repo.Roles().UserHasRole(ctx, resp.User.ID, account.RoleNameUser)
	require.NoError(t, err)
	assert.True(t, hasRole)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, account.ActivityEventConnectionSignup, events[0].EventType)
	assert.Equal(t, "github", events[0].Metadata["provider"])
}

func TestSignupWithConnectionDeterministicID(t *testing.T) {
	first := setupRepo(t)
	second := setupRepo(t)
	ctx := context.Background()

	message := account.SignupWithConnectionMessage{
		Email:          "ada@example.com",
		Provider:       "github",
		ProviderUserID: "gh-1",
	}

	var respA, respB *account.SignupWithConnectionResponse

	msgA := message
	msgA.OnResponse = func(r *account.SignupWithConnectionResponse) { respA = r }
	require.NoError(t, account.NewSignupWithConnectionHandler(first, account.DefaultConfig()).Execute(ctx, msgA))

	msgB := message
	msgB.OnResponse = func(r *account.SignupWithConnectionResponse) { respB = r }
	require.NoError(t, account.NewSignupWithConnectionHandler(second, account.DefaultConfig()).Execute(ctx, msgB))

	// user ids derive from the email, stable across databases
	assert.Equal(t, respA.User.ID, respB.User.ID)
}

func TestSignupWithConnectionStoresAvatar(t *testing.T) {
	db := setupDB(t)
	repo := account.NewRepositoryManager(db)
	ctx := context.Background()

	downloader := &stubDownloader{file: &account.File{
		ContentType: "image/png",
		Blob:        []byte{0x89, 0x50, 0x4e, 0x47},
	}}

	handler := account.NewSignupWithConnectionHandler(repo, account.DefaultConfig()).
		WithFileDownloader(downloader)

	var resp *account.SignupWithConnectionResponse
	err := handler.Execute(ctx, account.SignupWithConnectionMessage{
		Email:          "ada@example.com",
		Provider:       "github",
		ProviderUserID: "gh-1",
		ImageURL:       "https://example.com/avatar.png",
		OnResponse: func(r *account.SignupWithConnectionResponse) {
			resp = r
		},
	})
	require.NoError(t, err)

	image := &account.UserImage{}
	err = db.NewSelect().
		Model(image).
		Where("?TableAlias.user_id = ?", resp.User.ID).
		Limit(1).
		Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, image.Blob)
}

func TestSignupWithConnectionAvatarFailureIsNotFatal(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	handler := account.NewSignupWithConnectionHandler(repo, account.DefaultConfig()).
		WithFileDownloader(&stubDownloader{err: errDownloadFailed})

	var resp *account.SignupWithConnectionResponse
	err := handler.Execute(ctx, account.SignupWithConnectionMessage{
		Email:          "ada@example.com",
		Provider:       "github",
		ProviderUserID: "gh-1",
		ImageURL:       "https://example.com/avatar.png",
		OnResponse: func(r *account.SignupWithConnectionResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
}

func TestSignupWithConnectionConflict(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	other := createUser(t, repo, "grace@example.com", "grace")
	_, err := repo.Connections().Link(ctx, other.ID, "github", "gh-1")
	require.NoError(t, err)

	handler := account.NewSignupWithConnectionHandler(repo, account.DefaultConfig())

	err = handler.Execute(ctx, account.SignupWithConnectionMessage{
		Email:          "ada@example.com",
		Provider:       "github",
		ProviderUserID: "gh-1",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, account.TextCodeDuplicateConnection, richErr.TextCode)

	// the half-created user rolled back with the transaction
	_, err = repo.Users().GetByIdentifier(ctx, "ada@example.com")
	assert.ErrorIs(t, err, account.ErrIdentityNotFound)
}
