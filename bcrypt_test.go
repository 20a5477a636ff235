package account_test

import (
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := account.HashPassword("super secret")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "super secret", hash)

	assert.NoError(t, account.ComparePasswordAndHash("super secret", hash))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := account.HashPassword("")
	assert.ErrorIs(t, err, account.ErrNoEmptyString)
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := account.HashPassword("super secret")
	require.NoError(t, err)

	second, err := account.HashPassword("super secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := account.HashPassword("super secret")
	require.NoError(t, err)

	err = account.ComparePasswordAndHash("not the password", hash)
	assert.ErrorIs(t, err, account.ErrMismatchedHashAndPassword)
}

func TestRandomPasswordHash(t *testing.T) {
	hash := account.RandomPasswordHash()
	assert.NotEmpty(t, hash)

	// a random placeholder must never validate a guessable input
	assert.Error(t, account.ComparePasswordAndHash("", hash))
}
