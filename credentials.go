package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// CredentialVerifier resolves identities and checks plaintext passwords
// against stored hashes. Every failure mode returns the same sentinel so the
// caller cannot tell an unknown identifier apart from a bad password.
type CredentialVerifier struct {
	repo   RepositoryManager
	logger Logger
}

// NewCredentialVerifier will create a new CredentialVerifier
func NewCredentialVerifier(repo RepositoryManager) *CredentialVerifier {
	return &CredentialVerifier{
		repo:   repo,
		logger: defLogger{},
	}
}

func (c *CredentialVerifier) WithLogger(l Logger) *CredentialVerifier {
	if l != nil {
		c.logger = l
	}
	return c
}

// VerifyPassword resolves a user through a flexible selector (id, email or
// username) and compares the plaintext against the stored hash.
func (c *CredentialVerifier) VerifyPassword(ctx context.Context, identifier, password string) (*User, error) {
	user, err := c.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	stored, err := c.repo.Users().GetPassword(ctx, user.ID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// connection-only account, no password row
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve password during verification")
	}

	if err := ComparePasswordAndHash(password, stored.Hash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return user, nil
}

// SetPassword hashes the plaintext and upserts the password row, overwriting
// any existing hash for the user.
func (c *CredentialVerifier) SetPassword(ctx context.Context, identifier, password string) error {
	user, err := c.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	return c.repo.Users().SetPassword(ctx, user.ID, hash)
}
