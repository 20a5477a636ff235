package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Auther composes credential verification and the session store into the
// login, logout and session resolution entry points the route layer calls.
type Auther struct {
	repo         RepositoryManager
	verifier     *CredentialVerifier
	sessionTTL   time.Duration
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	return &Auther{
		repo:         repo,
		verifier:     NewCredentialVerifier(repo),
		sessionTTL:   opts.GetSessionTTL(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.verifier = s.verifier.WithLogger(logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Login verifies the credentials and creates a session on success. Any
// credential failure returns ErrMismatchedHashAndPassword with no session
// row created.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*Session, error) {
	user, err := s.verifier.VerifyPassword(ctx, identifier, password)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
		})
		return nil, err
	}

	session, err := s.repo.Sessions().Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		s.logger.Error("Login failed to create session: %v", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), map[string]any{
		"session_id": session.ID.String(),
	})

	return session, nil
}

// Logout destroys the session best effort. Errors are logged and swallowed;
// the user visible logout always completes.
func (s *Auther) Logout(ctx context.Context, sessionID uuid.UUID) {
	if err := s.repo.Sessions().Destroy(ctx, sessionID); err != nil {
		s.logger.Warn("Logout session destroy error for session %s: %v", sessionID.String(), err)
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{Type: "user"}, "", map[string]any{
		"session_id": sessionID.String(),
	})
}

// ResolveSession maps a session id to its owning user while the session is
// live. Expired or missing sessions return ErrUnableToFindSession; expired
// rows are left in place for the sweep.
func (s *Auther) ResolveSession(ctx context.Context, sessionID uuid.UUID) (*User, error) {
	session, err := s.repo.Sessions().Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
