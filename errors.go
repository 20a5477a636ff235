package account

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside structured errors
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeDuplicateIdentity   = "DUPLICATE_IDENTITY"
	TextCodeDuplicateConnection = "DUPLICATE_CONNECTION"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeVerificationMissing = "VERIFICATION_REQUIRED"
	TextCodeRoleMissing         = "ROLE_MISSING"
)

// ErrIdentityNotFound is returned when a referenced user does not exist
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is the single error returned for every
// credential failure: unknown identifier, user without a password, or hash
// mismatch. Callers must not tell these apart in user visible responses.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrUnableToFindSession is returned when a session id resolves to nothing
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound)

// ErrRecentVerificationRequired gates sensitive flows behind a recently
// completed verification
var ErrRecentVerificationRequired = goerrors.New("a recent verification is required", goerrors.CategoryAuth).
	WithTextCode(TextCodeVerificationMissing).
	WithCode(goerrors.CodeForbidden)

// IsUniqueViolation checks for unique constraint errors across the drivers
// the sqliteshim can pick.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE") ||
		strings.Contains(msg, "duplicate key value")
}

// NewDuplicateIdentityError maps a unique violation on users.email or
// users.username to the field level validation error route handlers expect.
func NewDuplicateIdentityError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryConflict, "a user already exists with this email or username").
		WithTextCode(TextCodeDuplicateIdentity).
		WithCode(goerrors.CodeConflict)
}

// NewDuplicateConnectionError maps a unique violation on
// (provider, provider_user_id) to a validation error without revealing which
// local account owns the connection.
func NewDuplicateConnectionError(err error) *goerrors.Error {
	if err == nil {
		return goerrors.New("this external account is already connected", goerrors.CategoryConflict).
			WithTextCode(TextCodeDuplicateConnection).
			WithCode(goerrors.CodeConflict)
	}
	return goerrors.Wrap(err, goerrors.CategoryConflict, "this external account is already connected").
		WithTextCode(TextCodeDuplicateConnection).
		WithCode(goerrors.CodeConflict)
}

// NewMissingRoleError reports seed data corruption. Missing reference roles
// are fatal configuration errors, not user errors.
func NewMissingRoleError(name string) *goerrors.Error {
	return goerrors.New("required role is missing from seed data", goerrors.CategoryInternal).
		WithTextCode(TextCodeRoleMissing).
		WithMetadata(map[string]any{"role": name})
}
