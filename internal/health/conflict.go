package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/adnane/nowab-bots-back/internal/audit"
)

// ConflictRecorder turns transport conflict errors into rate-limited audit
// alerts. A conflict means two pollers share one token, almost always a
// second orchestrator instance; remediation is operator work, so the signal
// is recorded, not auto-handled.
type ConflictRecorder struct {
	sink   audit.Sink
	logger *log.Logger
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewConflictRecorder(sink audit.Sink, logger *log.Logger, window time.Duration) *ConflictRecorder {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &ConflictRecorder{
		sink:   sink,
		logger: logger,
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Observe records one conflict occurrence for the tenant, at most once per
// window. Returns true when a record was written.
func (r *ConflictRecorder) Observe(ctx context.Context, tenantID string) bool {
	r.mu.Lock()
	now := r.now()
	if last, ok := r.last[tenantID]; ok && now.Sub(last) < r.window {
		r.mu.Unlock()
		return false
	}
	r.last[tenantID] = now
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Printf("poller conflict detected tenant=%s: another instance is consuming this token", tenantID)
	}
	r.sink.LogEvent(ctx, audit.Event{
		TenantID: tenantID,
		Action:   "poller_conflict_detected",
		Expected: "exactly one orchestrator instance per fleet",
	})
	return true
}
