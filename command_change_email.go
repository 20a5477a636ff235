package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangeEmailMessage struct {
	UserID uuid.UUID `json:"user_id"`

	OnResponse func(resp *ChangeEmailResponse)
}

func (e ChangeEmailMessage) Type() string { return "account.change_email" }

type ChangeEmailResponse struct {
	User     *User
	OldEmail string
	NewEmail string
	Success  bool
}

// ChangeEmailHandler finalizes an email change. The flow is gated on a
// recently completed "change-email" verification; the pending address lives
// in the short lived side channel, never in the verifications table. The
// notice always goes to the ORIGINAL mailbox so the owner can react to a
// hijacked change.
type ChangeEmailHandler struct {
	repo     RepositoryManager
	ledger   *VerificationLedger
	store    ScopedStore
	mailer   Mailer
	logger   Logger
	activity ActivitySink
}

// NewChangeEmailHandler creates a handler with sane defaults.
func NewChangeEmailHandler(repo RepositoryManager, ledger *VerificationLedger, store ScopedStore, mailer Mailer) *ChangeEmailHandler {
	return &ChangeEmailHandler{
		repo:     repo,
		ledger:   ledger,
		store:    store,
		mailer:   mailer,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *ChangeEmailHandler) WithLogger(logger Logger) *ChangeEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangeEmailHandler) WithActivitySink(sink ActivitySink) *ChangeEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// StashPendingEmail records the requested new address in the side channel
// while the verification round trip completes.
func (h *ChangeEmailHandler) StashPendingEmail(ctx context.Context, userID uuid.UUID, email string, ttl time.Duration) error {
	return h.store.Set(ctx, pendingEmailKey(userID), email, ttl)
}

func (h *ChangeEmailHandler) Execute(ctx context.Context, event ChangeEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeEmailHandler) execute(ctx context.Context, event ChangeEmailMessage) error {
	resp := &ChangeEmailResponse{}

	if err := h.ledger.RequireRecent(ctx, h.store, event.UserID.String(), VerificationTypeChangeEmail); err != nil {
		return err
	}

	newEmail, ok := h.store.Get(ctx, pendingEmailKey(event.UserID))
	if !ok {
		return goerrors.New("no pending email change for user", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"user_id": event.UserID.String()})
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		resp.OldEmail = user.Email

		if err := h.repo.Users().UpdateEmailTx(ctx, tx, user.ID, newEmail); err != nil {
			return err
		}

		resp.User = user
		resp.NewEmail = newEmail
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email change transaction failed")
	}

	h.cleanup(ctx, event.UserID, resp)
	h.notifyOldAddress(ctx, resp)
	h.recordActivity(ctx, resp)

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ChangeEmailHandler) cleanup(ctx context.Context, userID uuid.UUID, resp *ChangeEmailResponse) {
	if err := h.store.Delete(ctx, pendingEmailKey(userID)); err != nil {
		h.logger.Warn("failed to clear pending email: %v", err)
	}
	if err := h.store.Delete(ctx, recentVerificationKey(userID.String(), VerificationTypeChangeEmail)); err != nil {
		h.logger.Warn("failed to clear verification marker: %v", err)
	}
	if err := h.ledger.Consume(ctx, resp.NewEmail, VerificationTypeChangeEmail); err != nil {
		h.logger.Warn("failed to consume email change verification: %v", err)
	}
}

// notifyOldAddress sends the change notice to the address the account had
// BEFORE the change. Delivery failure is logged, never surfaced.
func (h *ChangeEmailHandler) notifyOldAddress(ctx context.Context, resp *ChangeEmailResponse) {
	if h.mailer == nil || resp.OldEmail == "" {
		return
	}

	content := "Your account email was changed to " + resp.NewEmail +
		". If you did not request this change, contact support immediately."

	if err := h.mailer.SendEmail(ctx, resp.OldEmail, "Your email address was changed", content); err != nil {
		h.logger.Warn("failed to notify previous address of email change: %v", err)
	}
}

func (h *ChangeEmailHandler) recordActivity(ctx context.Context, resp *ChangeEmailResponse) {
	if resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventEmailChanged,
		Actor: ActorRef{
			ID:   resp.User.ID.String(),
			Type: "user",
		},
		UserID:     resp.User.ID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email change: %v", err)
	}
}

func pendingEmailKey(userID uuid.UUID) string {
	return "pending-email:" + userID.String()
}
