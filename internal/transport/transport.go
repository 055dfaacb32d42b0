// Package transport abstracts the messaging platform behind narrow
// interfaces with typed error kinds, so that callers branch on errors
// instead of matching log strings.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// ErrConflict means another consumer is polling the same token. The platform
// enforces one poller per token; this error is the operational signal that a
// second orchestrator instance is running somewhere.
var ErrConflict = errors.New("another poller is consuming this token")

// ErrUnauthorized means the platform rejected the token outright.
var ErrUnauthorized = errors.New("token rejected by platform")

// RateLimitedError carries the platform-mandated wait before resending.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Transient reports whether an error is worth retrying with backoff.
// Conflict and unauthorized are terminal; rate limits have their own wait.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return false
	}
	var rateLimited *RateLimitedError
	return !errors.As(err, &rateLimited)
}

// Client is one live connection for one tenant token.
type Client interface {
	// GetUpdates long-polls for inbound updates starting at offset.
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Inbound, error)
	Send(ctx context.Context, out domain.Outbound) error
	DeleteWebhook(ctx context.Context) error
	Username() string
	Close()
}

// Dialer verifies a token against the platform and returns a live client.
type Dialer interface {
	Dial(ctx context.Context, token string) (Client, error)
}
