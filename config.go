package account

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig loads account options from the environment.
type EnvConfig struct {
	SessionTTL               time.Duration `env:"ACCOUNT_SESSION_TTL" envDefault:"720h"`
	VerificationTTL          time.Duration `env:"ACCOUNT_VERIFICATION_TTL" envDefault:"10m"`
	RecentVerificationWindow string        `env:"ACCOUNT_RECENT_VERIFICATION_WINDOW" envDefault:"2h"`
	DefaultRole              string        `env:"ACCOUNT_DEFAULT_ROLE" envDefault:"user"`
	CodeDigits               int           `env:"ACCOUNT_CODE_DIGITS" envDefault:"6"`
	CodePeriod               int           `env:"ACCOUNT_CODE_PERIOD" envDefault:"30"`
	CodeAlgorithm            string        `env:"ACCOUNT_CODE_ALGORITHM" envDefault:"SHA256"`
	CodeCharSet              string        `env:"ACCOUNT_CODE_CHAR_SET" envDefault:"0123456789"`
}

var _ Config = (*EnvConfig)(nil)

// NewConfigFromEnv parses configuration from process environment variables
func NewConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse account configuration")
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without touching the
// environment. Useful in tests.
func DefaultConfig() *EnvConfig {
	return &EnvConfig{
		SessionTTL:               30 * 24 * time.Hour,
		VerificationTTL:          10 * time.Minute,
		RecentVerificationWindow: "2h",
		DefaultRole:              RoleNameUser,
		CodeDigits:               6,
		CodePeriod:               30,
		CodeAlgorithm:            "SHA256",
		CodeCharSet:              "0123456789",
	}
}

func (c *EnvConfig) GetSessionTTL() time.Duration          { return c.SessionTTL }
func (c *EnvConfig) GetVerificationTTL() time.Duration     { return c.VerificationTTL }
func (c *EnvConfig) GetRecentVerificationWindow() string   { return c.RecentVerificationWindow }
func (c *EnvConfig) GetDefaultRole() string                { return c.DefaultRole }
func (c *EnvConfig) GetCodeDigits() int                    { return c.CodeDigits }
func (c *EnvConfig) GetCodePeriod() int                    { return c.CodePeriod }
func (c *EnvConfig) GetCodeAlgorithm() string              { return c.CodeAlgorithm }
func (c *EnvConfig) GetCodeCharSet() string                { return c.CodeCharSet }
