package account_test

import (
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnvDefaults(t *testing.T) {
	cfg, err := account.NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 720*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, 10*time.Minute, cfg.GetVerificationTTL())
	assert.Equal(t, "2h", cfg.GetRecentVerificationWindow())
	assert.Equal(t, account.RoleNameUser, cfg.GetDefaultRole())
	assert.Equal(t, 6, cfg.GetCodeDigits())
	assert.Equal(t, 30, cfg.GetCodePeriod())
	assert.Equal(t, "SHA256", cfg.GetCodeAlgorithm())
	assert.Equal(t, "0123456789", cfg.GetCodeCharSet())
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNT_SESSION_TTL", "24h")
	t.Setenv("ACCOUNT_CODE_DIGITS", "8")
	t.Setenv("ACCOUNT_CODE_CHAR_SET", "ABCDEF")
	t.Setenv("ACCOUNT_DEFAULT_ROLE", "admin")

	cfg, err := account.NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, 8, cfg.GetCodeDigits())
	assert.Equal(t, "ABCDEF", cfg.GetCodeCharSet())
	assert.Equal(t, "admin", cfg.GetDefaultRole())
}

func TestNewConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("ACCOUNT_SESSION_TTL", "not-a-duration")

	_, err := account.NewConfigFromEnv()
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := account.DefaultConfig()

	assert.Equal(t, 30*24*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, account.RoleNameUser, cfg.GetDefaultRole())
}
