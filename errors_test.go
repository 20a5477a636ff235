package account_test

import (
	"errors"
	"testing"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, account.IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, account.IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
	assert.True(t, account.IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "users_email_key"`)))

	assert.False(t, account.IsUniqueViolation(nil))
	assert.False(t, account.IsUniqueViolation(errors.New("no such table: users")))
}

func TestDuplicateIdentityError(t *testing.T) {
	err := account.NewDuplicateIdentityError(errors.New("UNIQUE constraint failed: users.email"))

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryConflict, richErr.Category)
	assert.Equal(t, account.TextCodeDuplicateIdentity, richErr.TextCode)
}

func TestDuplicateConnectionError(t *testing.T) {
	// conflicts detected by lookup carry no wrapped driver error
	err := account.NewDuplicateConnectionError(nil)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryConflict, richErr.Category)
	assert.Equal(t, account.TextCodeDuplicateConnection, richErr.TextCode)

	err = account.NewDuplicateConnectionError(errors.New("UNIQUE constraint failed: connections.provider"))
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, account.TextCodeDuplicateConnection, richErr.TextCode)
}

func TestMissingRoleErrorIsInternal(t *testing.T) {
	err := account.NewMissingRoleError("ghost")

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
	assert.Equal(t, account.TextCodeRoleMissing, richErr.TextCode)
}

func TestSentinelCategories(t *testing.T) {
	assert.True(t, goerrors.IsNotFound(account.ErrIdentityNotFound))

	var richErr *goerrors.Error
	require.True(t, goerrors.As(account.ErrMismatchedHashAndPassword, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
	assert.Equal(t, account.TextCodeInvalidCreds, richErr.TextCode)

	require.True(t, goerrors.As(account.ErrUnableToFindSession, &richErr))
	assert.Equal(t, account.TextCodeSessionNotFound, richErr.TextCode)

	require.True(t, goerrors.As(account.ErrRecentVerificationRequired, &richErr))
	assert.Equal(t, account.TextCodeVerificationMissing, richErr.TextCode)
}
