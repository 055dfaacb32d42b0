package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

type FunnelEvent string

const (
	FunnelStarted   FunnelEvent = "started"
	FunnelCompleted FunnelEvent = "completed"
	FunnelAbandoned FunnelEvent = "abandoned"
)

// Event is one structured audit record. Expected carries the corrective
// target where the action is a self-healing one (state resets and the like).
type Event struct {
	TenantID string
	UserID   int64
	State    string
	Action   string
	Expected string
}

// Sink receives audit events, funnel increments and health records. All
// methods are best-effort: implementations log failures and never surface
// them — observability must not fail the caller.
type Sink interface {
	LogEvent(ctx context.Context, event Event)
	IncrementFunnel(ctx context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent)
	RecordHealth(ctx context.Context, tenantID, check string, pass bool, detail string)
}

// HealthRecord is kept by the memory sink for assertions.
type HealthRecord struct {
	TenantID string
	Check    string
	Pass     bool
	Detail   string
}

// MemorySink records everything in memory, for tests and database-less runs.
type MemorySink struct {
	mu      sync.Mutex
	events  []Event
	funnel  map[string]int
	healths []HealthRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{funnel: make(map[string]int)}
}

func (s *MemorySink) LogEvent(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *MemorySink) IncrementFunnel(_ context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funnel[funnelKey(tenantID, flow, event)]++
}

func (s *MemorySink) RecordHealth(_ context.Context, tenantID, check string, pass bool, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healths = append(s.healths, HealthRecord{TenantID: tenantID, Check: check, Pass: pass, Detail: detail})
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *MemorySink) EventCount(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, event := range s.events {
		if event.Action == action {
			count++
		}
	}
	return count
}

func (s *MemorySink) FunnelCount(tenantID string, flow domain.FlowKind, event FunnelEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funnel[funnelKey(tenantID, flow, event)]
}

func (s *MemorySink) HealthRecords() []HealthRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HealthRecord(nil), s.healths...)
}

func funnelKey(tenantID string, flow domain.FlowKind, event FunnelEvent) string {
	return fmt.Sprintf("%s/%s/%s", tenantID, flow, event)
}
