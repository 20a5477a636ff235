package account

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`

	OnResponse func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	User    *User
	Session *Session
	Success bool
}

// SignupHandler runs the full signup flow in one transaction: user row,
// password hash, default role assignment and a live session. Failure at any
// step rolls back everything.
type SignupHandler struct {
	repo     RepositoryManager
	config   Config
	logger   Logger
	activity ActivitySink
}

// NewSignupHandler creates a handler with sane defaults.
func NewSignupHandler(repo RepositoryManager, config Config) *SignupHandler {
	return &SignupHandler{
		repo:     repo,
		config:   config,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	resp := &SignupResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Email:    event.Email,
			Username: getUsername(event.Username, event.Email),
			Name:     event.Name,
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password")
		}

		if err := h.repo.Roles().AssignTx(ctx, tx, user.ID, h.config.GetDefaultRole()); err != nil {
			return err
		}

		session, err := h.repo.Sessions().CreateTx(ctx, tx, user.ID, h.config.GetSessionTTL())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session")
		}

		resp.User = user
		resp.Session = session
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	h.recordActivity(ctx, resp)

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *SignupHandler) recordActivity(ctx context.Context, resp *SignupResponse) {
	if resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventSignup,
		Actor: ActorRef{
			ID:   resp.User.ID.String(),
			Type: "user",
		},
		UserID: resp.User.ID.String(),
		Metadata: map[string]any{
			"username": resp.User.Username,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during signup: %v", err)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
