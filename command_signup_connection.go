package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SignupWithConnectionMessage struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	ImageURL       string `json:"image_url"`

	OnResponse func(resp *SignupWithConnectionResponse)
}

func (e SignupWithConnectionMessage) Type() string { return "account.signup_connection" }

type SignupWithConnectionResponse struct {
	User       *User
	Connection *Connection
	Session    *Session
	Success    bool
}

// SignupWithConnectionHandler creates a local account for an already
// authenticated external identity: user row, default role, connection link,
// optional avatar import and a live session, all in one transaction. The
// avatar download is best effort and never aborts the signup.
type SignupWithConnectionHandler struct {
	repo       RepositoryManager
	config     Config
	downloader FileDownloader
	logger     Logger
	activity   ActivitySink
}

// NewSignupWithConnectionHandler creates a handler with sane defaults.
func NewSignupWithConnectionHandler(repo RepositoryManager, config Config) *SignupWithConnectionHandler {
	return &SignupWithConnectionHandler{
		repo:     repo,
		config:   config,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *SignupWithConnectionHandler) WithLogger(logger Logger) *SignupWithConnectionHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithFileDownloader enables avatar import from the provider profile.
func (h *SignupWithConnectionHandler) WithFileDownloader(d FileDownloader) *SignupWithConnectionHandler {
	h.downloader = d
	return h
}

func (h *SignupWithConnectionHandler) WithActivitySink(sink ActivitySink) *SignupWithConnectionHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *SignupWithConnectionHandler) Execute(ctx context.Context, event SignupWithConnectionMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during connection signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupWithConnectionHandler) execute(ctx context.Context, event SignupWithConnectionMessage) error {
	resp := &SignupWithConnectionResponse{}

	// external I/O stays outside the transaction
	avatar := h.fetchAvatar(ctx, event.ImageURL)

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Email:    event.Email,
			Username: getUsername(event.Username, event.Email),
			Name:     event.Name,
		}
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}

		var err error
		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		if err := h.repo.Roles().AssignTx(ctx, tx, user.ID, h.config.GetDefaultRole()); err != nil {
			return err
		}

		connection, err := h.repo.Connections().LinkTx(ctx, tx, user.ID, event.Provider, event.ProviderUserID)
		if err != nil {
			return err
		}

		if avatar != nil {
			image := &UserImage{
				ID:          uuid.New(),
				AltText:     user.Username,
				ContentType: avatar.ContentType,
				Blob:        avatar.Blob,
				UserID:      user.ID,
			}
			if _, err := tx.NewInsert().Model(image).Exec(ctx); err != nil {
				// the signup outlives a failed avatar import
				h.logger.Warn("failed to store avatar image: %v", err)
			}
		}

		session, err := h.repo.Sessions().CreateTx(ctx, tx, user.ID, h.config.GetSessionTTL())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session")
		}

		resp.User = user
		resp.Connection = connection
		resp.Session = session
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "connection signup transaction failed")
	}

	h.recordActivity(ctx, resp)

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *SignupWithConnectionHandler) fetchAvatar(ctx context.Context, url string) *File {
	if url == "" || h.downloader == nil {
		return nil
	}

	file, err := h.downloader.DownloadFile(ctx, url)
	if err != nil {
		h.logger.Warn("avatar download from %s failed, continuing without image: %v", url, err)
		return nil
	}

	return file
}

func (h *SignupWithConnectionHandler) recordActivity(ctx context.Context, resp *SignupWithConnectionResponse) {
	if resp.User == nil || resp.Connection == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventConnectionSignup,
		Actor: ActorRef{
			ID:   resp.User.ID.String(),
			Type: "user",
		},
		UserID: resp.User.ID.String(),
		Metadata: map[string]any{
			"provider": resp.Connection.Provider,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during connection signup: %v", err)
	}
}
