package account

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account options
type Config interface {
	GetSessionTTL() time.Duration
	GetVerificationTTL() time.Duration
	GetRecentVerificationWindow() string
	GetDefaultRole() string
	GetCodeDigits() int
	GetCodePeriod() int
	GetCodeAlgorithm() string
	GetCodeCharSet() string
}

// Mailer delivers notices and one time codes. Implemented by the hosting
// application; the core never talks to an SMTP server itself.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, content string) error
}

// File is a downloaded remote asset
type File struct {
	ContentType string
	Blob        []byte
}

// FileDownloader fetches remote assets such as connection avatars.
// Cancellation and timeouts are the caller's responsibility.
type FileDownloader interface {
	DownloadFile(ctx context.Context, url string) (*File, error)
}

// ScopedStore is a short lived key value side channel with its own expiry,
// decoupled from the sessions table. Production implementations are cookie
// backed; the core only reads and writes already parsed values.
type ScopedStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
