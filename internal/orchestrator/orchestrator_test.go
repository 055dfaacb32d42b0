package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adnane/nowab-bots-back/internal/directory"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/poller"
	"github.com/adnane/nowab-bots-back/internal/session"
)

const goodToken = "123456789:AAexampleSecretValueLongEnough"

type fakeHandle struct {
	mu      sync.Mutex
	id      string
	token   string
	alive   bool
	stops   int
	tenants []domain.TenantConfig
}

func (h *fakeHandle) TenantID() string { return h.id }
func (h *fakeHandle) Token() string    { return h.token }

func (h *fakeHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
	h.stops++
}

func (h *fakeHandle) UpdateTenant(tenant domain.TenantConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tenants = append(h.tenants, tenant)
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

func (h *fakeHandle) kill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
}

type fakeRunner struct {
	mu      sync.Mutex
	starts  []string
	errs    map[string]error
	handles []*fakeHandle
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{errs: make(map[string]error)}
}

func (r *fakeRunner) Start(_ context.Context, tenant domain.TenantConfig) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, tenant.ID)
	if err := r.errs[tenant.ID]; err != nil {
		return nil, err
	}
	handle := &fakeHandle{id: tenant.ID, token: tenant.Token, alive: true}
	r.handles = append(r.handles, handle)
	return handle, nil
}

func (r *fakeRunner) startCount(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, id := range r.starts {
		if id == tenantID {
			count++
		}
	}
	return count
}

func (r *fakeRunner) lastHandle() *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.handles) == 0 {
		return nil
	}
	return r.handles[len(r.handles)-1]
}

func newTestOrchestrator(dir directory.Directory, runner Runner) *Orchestrator {
	return New(dir, runner, session.NewStore(time.Hour), nil, Config{})
}

func TestReconcileFollowsTenantLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory(domain.TenantConfig{ID: "t1", Token: goodToken, Active: true})
	runner := newFakeRunner()
	orch := newTestOrchestrator(dir, runner)

	orch.Reconcile(ctx)
	if live := orch.LiveTenants(); len(live) != 1 || live[0] != "t1" {
		t.Fatalf("expected one live poller, got %v", live)
	}

	// A steady state must not start a second poller for the same tenant.
	orch.Reconcile(ctx)
	orch.Reconcile(ctx)
	if got := runner.startCount("t1"); got != 1 {
		t.Fatalf("expected exactly one start for a steady tenant, got %d", got)
	}

	dir.Upsert(domain.TenantConfig{ID: "t1", Token: goodToken, Active: false})
	orch.Reconcile(ctx)
	if live := orch.LiveTenants(); len(live) != 0 {
		t.Fatalf("expected no live pollers after deactivation, got %v", live)
	}
	if got := runner.lastHandle().stopCount(); got != 1 {
		t.Fatalf("expected the handle to be stopped once, got %d", got)
	}
}

func TestReconcileRefreshesProfileInPlace(t *testing.T) {
	ctx := context.Background()
	tenant := domain.TenantConfig{ID: "t1", Token: goodToken, Active: true}
	dir := directory.NewMemoryDirectory(tenant)
	runner := newFakeRunner()
	orch := newTestOrchestrator(dir, runner)

	orch.Reconcile(ctx)
	tenant.DisplayName = "اسم محين"
	dir.Upsert(tenant)
	orch.Reconcile(ctx)

	handle := runner.lastHandle()
	if got := runner.startCount("t1"); got != 1 {
		t.Fatalf("expected a profile change to avoid a restart, got %d starts", got)
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if len(handle.tenants) == 0 || handle.tenants[len(handle.tenants)-1].DisplayName != "اسم محين" {
		t.Fatalf("expected the running handle to receive the refreshed snapshot")
	}
}

func TestTokenChangeRestartsPoller(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory(domain.TenantConfig{ID: "t1", Token: goodToken, Active: true})
	runner := newFakeRunner()
	orch := newTestOrchestrator(dir, runner)

	orch.Reconcile(ctx)
	old := runner.lastHandle()

	rotated := "987654321:BBrotatedSecretValueLongEnough"
	dir.Upsert(domain.TenantConfig{ID: "t1", Token: rotated, Active: true})
	orch.Reconcile(ctx)

	if old.stopCount() != 1 {
		t.Fatalf("expected the old handle stopped on token change")
	}
	if got := runner.startCount("t1"); got != 2 {
		t.Fatalf("expected a fresh start with the new token, got %d starts", got)
	}
	if runner.lastHandle().Token() != rotated {
		t.Fatalf("expected the new handle to carry the rotated token")
	}
}

func TestDeadPollerRetiredThenRestartedAfterCooldown(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory(domain.TenantConfig{ID: "t1", Token: goodToken, Active: true})
	runner := newFakeRunner()
	orch := newTestOrchestrator(dir, runner)

	base := time.Now()
	orch.now = func() time.Time { return base }
	orch.Reconcile(ctx)

	runner.lastHandle().kill()
	orch.Reconcile(ctx)
	if live := orch.LiveTenants(); len(live) != 0 {
		t.Fatalf("expected the dead poller retired, got %v", live)
	}

	// Within the cooldown no restart happens, however many passes run.
	orch.now = func() time.Time { return base.Add(time.Minute) }
	orch.Reconcile(ctx)
	orch.Reconcile(ctx)
	if got := runner.startCount("t1"); got != 1 {
		t.Fatalf("expected no restart within the cooldown, got %d starts", got)
	}

	orch.now = func() time.Time { return base.Add(6 * time.Minute) }
	orch.Reconcile(ctx)
	if got := runner.startCount("t1"); got != 2 {
		t.Fatalf("expected a restart after the cooldown, got %d starts", got)
	}
}

func TestStartFailureHonorsCooldown(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory(domain.TenantConfig{ID: "t1", Token: goodToken, Active: true})
	runner := newFakeRunner()
	runner.errs["t1"] = errors.New("dial timeout")
	orch := newTestOrchestrator(dir, runner)

	base := time.Now()
	orch.now = func() time.Time { return base }
	orch.Reconcile(ctx)
	orch.Reconcile(ctx)
	if got := runner.startCount("t1"); got != 1 {
		t.Fatalf("expected one attempt before the cooldown expires, got %d", got)
	}

	delete(runner.errs, "t1")
	orch.now = func() time.Time { return base.Add(6 * time.Minute) }
	orch.Reconcile(ctx)
	if live := orch.LiveTenants(); len(live) != 1 {
		t.Fatalf("expected a successful start after the cooldown, got %v", live)
	}
}

func TestInvalidTokenSkippedUntilConfigChanges(t *testing.T) {
	ctx := context.Background()
	badToken := "123456789:CCstructurallyFineButRejected01"
	dir := directory.NewMemoryDirectory(domain.TenantConfig{ID: "t1", Token: badToken, Active: true})
	runner := newFakeRunner()
	runner.errs["t1"] = poller.ErrInvalidToken
	orch := newTestOrchestrator(dir, runner)

	base := time.Now()
	orch.now = func() time.Time { return base }
	orch.Reconcile(ctx)

	// Unlike transient failures, a bad token is not retried on a clock: the
	// cooldown expiring changes nothing until the config does.
	orch.now = func() time.Time { return base.Add(time.Hour) }
	orch.Reconcile(ctx)
	orch.Reconcile(ctx)
	if got := runner.startCount("t1"); got != 1 {
		t.Fatalf("expected no retries for an invalid token, got %d attempts", got)
	}

	delete(runner.errs, "t1")
	dir.Upsert(domain.TenantConfig{ID: "t1", Token: goodToken, Active: true})
	orch.Reconcile(ctx)
	if live := orch.LiveTenants(); len(live) != 1 {
		t.Fatalf("expected a start after the token was fixed, got %v", live)
	}
}

func TestStopAllStopsEverything(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory(
		domain.TenantConfig{ID: "t1", Token: goodToken, Active: true},
		domain.TenantConfig{ID: "t2", Token: "987654321:BBrotatedSecretValueLongEnough", Active: true},
	)
	runner := newFakeRunner()
	orch := newTestOrchestrator(dir, runner)

	orch.Reconcile(ctx)
	if len(orch.LiveTenants()) != 2 {
		t.Fatalf("expected two live pollers")
	}

	orch.StopAll()
	if len(orch.LiveTenants()) != 0 {
		t.Fatalf("expected no live pollers after StopAll")
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, handle := range runner.handles {
		if handle.stops != 1 {
			t.Fatalf("expected every handle stopped exactly once, got %d for %s", handle.stops, handle.id)
		}
	}
}
