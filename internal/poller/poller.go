// Package poller owns the one live platform connection each tenant gets:
// the long-poll update loop, ordered dispatch into the conversation engine,
// send-level retry, and the per-tenant health loop.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/directory"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/engine"
	"github.com/adnane/nowab-bots-back/internal/health"
	"github.com/adnane/nowab-bots-back/internal/notify"
	"github.com/adnane/nowab-bots-back/internal/session"
	"github.com/adnane/nowab-bots-back/internal/store"
	"github.com/adnane/nowab-bots-back/internal/transport"
)

// ErrInvalidToken marks a structurally broken token: terminal for the tenant
// until its configuration changes, never retried in a loop.
var ErrInvalidToken = errors.New("tenant token has an invalid format")

const (
	pollErrorBackoff      = 3 * time.Second
	maxRateLimitedResends = 5
)

type Deps struct {
	Dialer      transport.Dialer
	Sessions    *session.Store
	Submissions store.Submissions
	Sink        audit.Sink
	Conflicts   *health.ConflictRecorder
	Logger      *log.Logger

	Engine engine.Config

	StartRetries    int
	StartRetryDelay time.Duration
	PollTimeout     time.Duration
	SendRetries     int
	SendRetryDelay  time.Duration
	SendRateRPS     float64
	SendRateBurst   int
	DispatchWorkers int

	HealthInterval time.Duration
	UpdateRecency  time.Duration
}

func (d *Deps) applyDefaults() {
	if d.StartRetries <= 0 {
		d.StartRetries = 3
	}
	if d.StartRetryDelay <= 0 {
		d.StartRetryDelay = 8 * time.Second
	}
	if d.PollTimeout <= 0 {
		d.PollTimeout = 25 * time.Second
	}
	if d.SendRetries <= 0 {
		d.SendRetries = 3
	}
	if d.SendRetryDelay <= 0 {
		d.SendRetryDelay = 1500 * time.Millisecond
	}
	if d.SendRateRPS <= 0 {
		d.SendRateRPS = 25
	}
	if d.SendRateBurst <= 0 {
		d.SendRateBurst = 30
	}
}

// Manager starts pollers; the orchestrator is its only caller.
type Manager struct {
	deps Deps
}

func NewManager(deps Deps) *Manager {
	deps.applyDefaults()
	return &Manager{deps: deps}
}

// Handle is the runtime record of one live tenant poller.
type Handle struct {
	tenantID  string
	startedAt time.Time
	client    transport.Client
	engine    *engine.Engine
	limiter   *rate.Limiter
	disp      *dispatcher
	deps      Deps

	tenant     atomic.Pointer[domain.TenantConfig]
	lastUpdate atomic.Int64

	cancel   context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once
}

// Start validates the token, connects with bounded retries, clears any
// webhook left behind (the platform forbids webhook and poll delivery at
// once), and launches the update and health loops.
func (m *Manager) Start(ctx context.Context, tenant domain.TenantConfig) (*Handle, error) {
	if !directory.ValidTokenFormat(tenant.Token) {
		return nil, fmt.Errorf("%w: tenant %s", ErrInvalidToken, tenant.ID)
	}

	client, err := m.dial(ctx, tenant.Token)
	if err != nil {
		return nil, err
	}

	if err := client.DeleteWebhook(ctx); err != nil {
		// The update loop will surface a conflict if a webhook really is
		// still registered; a transient failure here is not worth a restart.
		if m.deps.Logger != nil {
			m.deps.Logger.Printf("delete webhook failed tenant=%s: %v", tenant.ID, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		tenantID:  tenant.ID,
		startedAt: time.Now().UTC(),
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(m.deps.SendRateRPS), m.deps.SendRateBurst),
		disp:      newDispatcher(m.deps.DispatchWorkers),
		deps:      m.deps,
		cancel:    cancel,
		loopDone:  make(chan struct{}),
	}
	snapshot := tenant
	h.tenant.Store(&snapshot)
	h.engine = engine.New(
		m.deps.Submissions,
		m.deps.Sink,
		notify.NewClientSender(client, m.deps.Logger),
		m.deps.Logger,
		m.deps.Engine,
	)

	go h.updateLoop(runCtx)

	monitor := health.NewMonitor(m.deps.Submissions, m.deps.Sink, client, m.deps.Logger, health.MonitorConfig{
		Interval:    m.deps.HealthInterval,
		Recency:     m.deps.UpdateRecency,
		ProbeChatID: tenant.Profile.ProbeChatID,
	})
	go monitor.Run(runCtx, h)

	if m.deps.Logger != nil {
		m.deps.Logger.Printf("poller started tenant=%s bot=%s", tenant.ID, client.Username())
	}
	return h, nil
}

func (m *Manager) dial(ctx context.Context, token string) (transport.Client, error) {
	var lastErr error
	for attempt := 1; attempt <= m.deps.StartRetries; attempt++ {
		client, err := m.deps.Dialer.Dial(ctx, token)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if !transport.Transient(err) {
			return nil, err
		}
		if attempt < m.deps.StartRetries {
			if !sleepCtx(ctx, m.deps.StartRetryDelay) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("connect after %d attempts: %w", m.deps.StartRetries, lastErr)
}

func (h *Handle) TenantID() string { return h.tenantID }

func (h *Handle) StartedAt() time.Time { return h.startedAt }

func (h *Handle) Token() string { return h.tenant.Load().Token }

func (h *Handle) LastUpdateAt() time.Time {
	nanos := h.lastUpdate.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Alive reports whether the update loop is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.loopDone:
		return false
	default:
		return true
	}
}

// UpdateTenant refreshes the profile snapshot the engine reads. Token
// changes are restarts, not refreshes; the orchestrator handles those.
func (h *Handle) UpdateTenant(tenant domain.TenantConfig) {
	h.tenant.Store(&tenant)
}

// Stop cancels the loops, waits for in-flight dispatches, and releases the
// connection. Safe to call repeatedly.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.loopDone
		h.disp.wait()
		h.client.Close()
		h.deps.Sessions.DropTenant(h.tenantID)
		if h.deps.Logger != nil {
			h.deps.Logger.Printf("poller stopped tenant=%s", h.tenantID)
		}
	})
}

func (h *Handle) updateLoop(ctx context.Context) {
	defer close(h.loopDone)

	offset := 0
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := h.client.GetUpdates(ctx, offset, h.deps.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			wait := pollErrorBackoff
			switch {
			case errors.Is(err, transport.ErrConflict):
				h.deps.Conflicts.Observe(ctx, h.tenantID)
			default:
				var rateLimited *transport.RateLimitedError
				if errors.As(err, &rateLimited) {
					wait = rateLimited.RetryAfter
				} else if h.deps.Logger != nil {
					h.deps.Logger.Printf("get updates failed tenant=%s: %v", h.tenantID, err)
				}
			}
			if !sleepCtx(ctx, wait) {
				return
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			// Updates fetched before cancellation are dropped, not processed.
			if ctx.Err() != nil {
				return
			}
			if update.ChatID == 0 {
				continue
			}
			h.lastUpdate.Store(time.Now().UnixNano())
			h.disp.enqueue(ctx, update, h.process)
		}
	}
}

func (h *Handle) process(ctx context.Context, in domain.Inbound) {
	tenant := h.tenant.Load()
	sess := h.deps.Sessions.Get(tenant.ID, in.UserID)
	for _, out := range h.engine.Handle(ctx, tenant, sess, in) {
		h.send(ctx, out)
	}
}

// send paces outbound traffic and retries: rate-limit responses wait the
// platform-given interval, transient failures get bounded retries, and a
// still-failing reply is logged and dropped. Replies are best-effort.
func (h *Handle) send(ctx context.Context, out domain.Outbound) {
	if err := h.limiter.Wait(ctx); err != nil {
		return
	}

	transientAttempts := 0
	rateLimitedResends := 0
	for {
		err := h.client.Send(ctx, out)
		if err == nil {
			return
		}

		var rateLimited *transport.RateLimitedError
		if errors.As(err, &rateLimited) {
			rateLimitedResends++
			if rateLimitedResends <= maxRateLimitedResends && sleepCtx(ctx, rateLimited.RetryAfter) {
				continue
			}
		} else if transport.Transient(err) {
			transientAttempts++
			if transientAttempts < h.deps.SendRetries && sleepCtx(ctx, h.deps.SendRetryDelay) {
				continue
			}
		}

		if h.deps.Logger != nil && !errors.Is(err, context.Canceled) {
			h.deps.Logger.Printf("reply dropped tenant=%s chat=%d: %v", h.tenantID, out.ChatID, err)
		}
		return
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
