package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// Funnel holds the started/completed/abandoned counters per tenant and flow.
type Funnel interface {
	Increment(ctx context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) error
}

// MemoryFunnel is the fallback when Redis is not configured.
type MemoryFunnel struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryFunnel() *MemoryFunnel {
	return &MemoryFunnel{counts: make(map[string]int)}
}

func (f *MemoryFunnel) Increment(_ context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[funnelKey(tenantID, flow, event)]++
	return nil
}

func (f *MemoryFunnel) Count(tenantID string, flow domain.FlowKind, event FunnelEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[funnelKey(tenantID, flow, event)]
}

type RedisFunnelConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix defaults to "nowab:funnel".
	KeyPrefix string
}

// RedisFunnel keeps counters as hash fields, one hash per tenant and flow,
// fields started/completed/abandoned. External reporting reads them directly.
type RedisFunnel struct {
	client *redis.Client
	prefix string
}

func NewRedisFunnel(ctx context.Context, cfg RedisFunnelConfig) (*RedisFunnel, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "nowab:funnel"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisFunnel{client: client, prefix: cfg.KeyPrefix}, nil
}

func (f *RedisFunnel) Increment(ctx context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) error {
	key := fmt.Sprintf("%s:%s:%s", f.prefix, tenantID, flow)
	if err := f.client.HIncrBy(ctx, key, string(event), 1).Err(); err != nil {
		return fmt.Errorf("increment funnel %s/%s: %w", key, event, err)
	}
	return nil
}

func (f *RedisFunnel) Close() error {
	return f.client.Close()
}
