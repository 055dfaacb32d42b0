package directory

import (
	"context"
	"regexp"
	"sync"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// Directory is the read path into the tenant store. Implementations must
// return an empty slice, not an error, when the backing store is transiently
// unavailable: zero tenants is a state the orchestrator tolerates, a failed
// reconciliation pass is not.
type Directory interface {
	ListActive(ctx context.Context) ([]domain.TenantConfig, error)
}

// Bot tokens are "<numeric id>:<secret>" with a secret long enough to be
// plausible. This is a purely syntactic gate; the platform verifies for real.
var tokenShape = regexp.MustCompile(`^\d{6,12}:[A-Za-z0-9_-]{30,}$`)

func ValidTokenFormat(token string) bool {
	return tokenShape.MatchString(token)
}

// MemoryDirectory serves a fixed tenant set, for tests and database-less runs.
type MemoryDirectory struct {
	mu      sync.RWMutex
	tenants map[string]domain.TenantConfig
}

func NewMemoryDirectory(tenants ...domain.TenantConfig) *MemoryDirectory {
	d := &MemoryDirectory{tenants: make(map[string]domain.TenantConfig)}
	for _, tenant := range tenants {
		d.tenants[tenant.ID] = tenant
	}
	return d
}

func (d *MemoryDirectory) ListActive(_ context.Context) ([]domain.TenantConfig, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	active := make([]domain.TenantConfig, 0, len(d.tenants))
	for _, tenant := range d.tenants {
		if tenant.Active {
			active = append(active, tenant)
		}
	}
	return active, nil
}

// Upsert replaces one tenant record; used by tests to flip activation flags
// between reconciliation passes.
func (d *MemoryDirectory) Upsert(tenant domain.TenantConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants[tenant.ID] = tenant
}

func (d *MemoryDirectory) Remove(tenantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tenants, tenantID)
}
