package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Verification types used by the auth flows
const (
	VerificationTypeOnboarding    = "onboarding"
	VerificationTypeResetPassword = "reset-password"
	VerificationTypeChangeEmail   = "change-email"
	VerificationTypeTwoFactor     = "2fa"
)

// codeSkewWindows is how many adjacent time windows each side are accepted
// to tolerate clock skew between the server and the code holder.
const codeSkewWindows = 1

// CreateVerificationOptions describe a new challenge. Zero derivation fields
// fall back to the configured defaults.
type CreateVerificationOptions struct {
	Type      string
	Target    string
	Algorithm string
	Digits    int
	Period    int
	CharSet   string
	// ExpiresIn bounds the challenge lifetime; ignored when NoExpiry is set.
	ExpiresIn time.Duration
	// NoExpiry keeps the record live until explicit deletion, used by flows
	// like persistent two factor enrollment.
	NoExpiry bool
}

// VerificationLedger manages the one live challenge per (target, type) pair
// and derives time based codes from it.
type VerificationLedger struct {
	repo   RepositoryManager
	config Config
	logger Logger
}

// NewVerificationLedger will create a new VerificationLedger
func NewVerificationLedger(repo RepositoryManager, config Config) *VerificationLedger {
	return &VerificationLedger{
		repo:   repo,
		config: config,
		logger: defLogger{},
	}
}

func (l *VerificationLedger) WithLogger(logger Logger) *VerificationLedger {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Create inserts or replaces the challenge for (target, type) and returns
// the record along with the code for the current time window, ready to be
// delivered out of band.
func (l *VerificationLedger) Create(ctx context.Context, opts CreateVerificationOptions) (*Verification, string, error) {
	if opts.Type == "" || opts.Target == "" {
		return nil, "", goerrors.New("verification type and target are required", goerrors.CategoryBadInput)
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	record := &Verification{
		Type:      opts.Type,
		Target:    opts.Target,
		Secret:    secret,
		Algorithm: opts.Algorithm,
		Digits:    opts.Digits,
		Period:    opts.Period,
		CharSet:   opts.CharSet,
		CreatedAt: time.Now(),
	}

	if record.Algorithm == "" {
		record.Algorithm = l.config.GetCodeAlgorithm()
	}
	if record.Digits == 0 {
		record.Digits = l.config.GetCodeDigits()
	}
	if record.Period == 0 {
		record.Period = l.config.GetCodePeriod()
	}
	if record.CharSet == "" {
		record.CharSet = l.config.GetCodeCharSet()
	}

	if !opts.NoExpiry {
		ttl := opts.ExpiresIn
		if ttl <= 0 {
			ttl = l.config.GetVerificationTTL()
		}
		expires := time.Now().Add(ttl)
		record.ExpiresAt = &expires
	}

	if _, err := l.repo.Verifications().Upsert(ctx, record); err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification")
	}

	code, err := GenerateCode(l.params(record), time.Now())
	if err != nil {
		return nil, "", err
	}

	return record, code, nil
}

// VerifyCode checks the submitted code against the live challenge for
// (target, type). Absent records, expired records and mismatched codes all
// report plain false. The record is NOT consumed; one time use is the
// caller's policy.
func (l *VerificationLedger) VerifyCode(ctx context.Context, target, vtype, submitted string) (bool, error) {
	record, err := l.repo.Verifications().Find(ctx, target, vtype)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification")
	}

	if record.Expired(time.Now()) {
		return false, nil
	}

	return VerifyCodeAt(l.params(record), submitted, time.Now(), codeSkewWindows)
}

// Consume deletes the challenge after successful use. Idempotent.
func (l *VerificationLedger) Consume(ctx context.Context, target, vtype string) error {
	return l.repo.Verifications().Delete(ctx, target, vtype)
}

// MarkVerified records a completion marker in the short lived side channel
// so sensitive flows can demand a recent verification.
func (l *VerificationLedger) MarkVerified(ctx context.Context, store ScopedStore, userID, vtype string) error {
	window, err := time.ParseDuration(l.config.GetRecentVerificationWindow())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid recent verification window")
	}
	return store.Set(ctx, recentVerificationKey(userID, vtype), time.Now().Format(time.RFC3339), window)
}

// RequireRecent fails unless the user completed a verification of the given
// type within the configured trailing window.
func (l *VerificationLedger) RequireRecent(ctx context.Context, store ScopedStore, userID, vtype string) error {
	if _, ok := store.Get(ctx, recentVerificationKey(userID, vtype)); !ok {
		return ErrRecentVerificationRequired
	}
	return nil
}

func (l *VerificationLedger) params(record *Verification) CodeParams {
	return CodeParams{
		Secret:    record.Secret,
		Algorithm: record.Algorithm,
		Digits:    record.Digits,
		Period:    record.Period,
		CharSet:   record.CharSet,
	}
}

func recentVerificationKey(userID, vtype string) string {
	return "verified:" + vtype + ":" + userID
}
