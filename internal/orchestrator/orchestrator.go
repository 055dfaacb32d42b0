// Package orchestrator reconciles the desired poller set (active tenants)
// against the live one. It is the sole writer of poller lifecycle: nothing
// else starts or stops handles, which is what makes the one-poller-per-
// tenant invariant checkable.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/adnane/nowab-bots-back/internal/directory"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/poller"
	"github.com/adnane/nowab-bots-back/internal/session"
)

// Handle is the orchestrator's view of a running poller.
type Handle interface {
	TenantID() string
	Token() string
	Alive() bool
	Stop()
	UpdateTenant(tenant domain.TenantConfig)
}

// Runner starts pollers. poller.Manager is the production implementation.
type Runner interface {
	Start(ctx context.Context, tenant domain.TenantConfig) (Handle, error)
}

// RunnerFunc adapts a start function to Runner.
type RunnerFunc func(ctx context.Context, tenant domain.TenantConfig) (Handle, error)

func (f RunnerFunc) Start(ctx context.Context, tenant domain.TenantConfig) (Handle, error) {
	return f(ctx, tenant)
}

type Config struct {
	// Interval is the reconciliation cadence.
	Interval time.Duration
	// Cooldown delays restart attempts after a tenant's poller failed.
	Cooldown time.Duration
}

type Orchestrator struct {
	dir      directory.Directory
	runner   Runner
	sessions *session.Store
	logger   *log.Logger
	interval time.Duration
	cooldown time.Duration

	mu      sync.Mutex
	handles map[string]Handle
	// failures records the last start/crash time per tenant for the cooldown.
	failures map[string]time.Time
	// badTokens remembers structurally invalid tokens so they are logged once
	// and skipped until the tenant's config actually changes.
	badTokens map[string]string

	now func() time.Time
}

func New(dir directory.Directory, runner Runner, sessions *session.Store, logger *log.Logger, cfg Config) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Orchestrator{
		dir:       dir,
		runner:    runner,
		sessions:  sessions,
		logger:    logger,
		interval:  cfg.Interval,
		cooldown:  cfg.Cooldown,
		handles:   make(map[string]Handle),
		failures:  make(map[string]time.Time),
		badTokens: make(map[string]string),
		now:       time.Now,
	}
}

// Run reconciles on a fixed cadence until ctx is cancelled, then stops every
// live poller.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.Reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			o.StopAll()
			return
		case <-ticker.C:
			o.Reconcile(ctx)
			if o.sessions != nil {
				o.sessions.Sweep()
			}
		}
	}
}

// Reconcile executes one diff-and-apply pass. One tenant's failure never
// blocks the others; the pass itself cannot fail.
func (o *Orchestrator) Reconcile(ctx context.Context) {
	tenants, err := o.dir.ListActive(ctx)
	if err != nil {
		// Directory implementations degrade to an empty set themselves; an
		// error here still must not kill the loop.
		if o.logger != nil {
			o.logger.Printf("list active tenants failed: %v", err)
		}
		return
	}

	active := make(map[string]domain.TenantConfig, len(tenants))
	for _, tenant := range tenants {
		active[tenant.ID] = tenant
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()

	// Retire handles whose update loop died silently.
	for id, handle := range o.handles {
		if !handle.Alive() {
			if o.logger != nil {
				o.logger.Printf("poller found dead, retiring tenant=%s", id)
			}
			handle.Stop()
			delete(o.handles, id)
			o.failures[id] = now
		}
	}

	// Stop pollers for tenants that are gone or deactivated; restart on
	// token change, otherwise refresh the profile snapshot in place.
	for id, handle := range o.handles {
		tenant, stillActive := active[id]
		switch {
		case !stillActive:
			if o.logger != nil {
				o.logger.Printf("tenant deactivated, stopping poller tenant=%s", id)
			}
			handle.Stop()
			delete(o.handles, id)
		case tenant.Token != handle.Token():
			if o.logger != nil {
				o.logger.Printf("tenant token changed, restarting poller tenant=%s", id)
			}
			handle.Stop()
			delete(o.handles, id)
			delete(o.failures, id)
			delete(o.badTokens, id)
		default:
			handle.UpdateTenant(tenant)
		}
	}

	// Start pollers for active tenants without one, honoring cooldowns.
	for id, tenant := range active {
		if _, running := o.handles[id]; running {
			continue
		}
		if o.badTokens[id] == tenant.Token {
			continue
		}
		if failedAt, ok := o.failures[id]; ok && now.Sub(failedAt) < o.cooldown {
			continue
		}

		handle, err := o.runner.Start(ctx, tenant)
		if err != nil {
			if errors.Is(err, poller.ErrInvalidToken) {
				if o.logger != nil {
					o.logger.Printf("tenant has invalid token, skipping until config changes tenant=%s", id)
				}
				o.badTokens[id] = tenant.Token
				continue
			}
			if o.logger != nil {
				o.logger.Printf("poller start failed tenant=%s: %v", id, err)
			}
			o.failures[id] = now
			continue
		}
		delete(o.failures, id)
		delete(o.badTokens, id)
		o.handles[id] = handle
	}
}

// StopAll stops every live poller; used on shutdown.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	handles := make([]Handle, 0, len(o.handles))
	for id, handle := range o.handles {
		handles = append(handles, handle)
		delete(o.handles, id)
	}
	o.mu.Unlock()

	for _, handle := range handles {
		handle.Stop()
	}
}

// LiveTenants lists tenants with a running poller, for tests and logging.
func (o *Orchestrator) LiveTenants() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.handles))
	for id := range o.handles {
		ids = append(ids, id)
	}
	return ids
}
