package audit

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// DBSink writes audit events and health records to postgres and delegates
// funnel counters to the configured Funnel. Every write is best-effort; a
// failing sink degrades to log lines, never to caller errors.
type DBSink struct {
	pool   *pgxpool.Pool
	funnel Funnel
	logger *log.Logger
}

func NewDBSink(pool *pgxpool.Pool, funnel Funnel, logger *log.Logger) *DBSink {
	if funnel == nil {
		funnel = NewMemoryFunnel()
	}
	return &DBSink{pool: pool, funnel: funnel, logger: logger}
}

func (s *DBSink) LogEvent(ctx context.Context, event Event) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (tenant_id, user_id, state, action, expected, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, event.TenantID, event.UserID, event.State, event.Action, event.Expected, time.Now().UTC())
	if err != nil && s.logger != nil {
		s.logger.Printf("audit event write failed action=%s tenant=%s: %v", event.Action, event.TenantID, err)
	}
}

func (s *DBSink) IncrementFunnel(ctx context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) {
	if err := s.funnel.Increment(ctx, tenantID, flow, event); err != nil && s.logger != nil {
		s.logger.Printf("funnel increment failed tenant=%s flow=%s event=%s: %v", tenantID, flow, event, err)
	}
}

func (s *DBSink) RecordHealth(ctx context.Context, tenantID, check string, pass bool, detail string) {
	status := "fail"
	if pass {
		status = "pass"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO health_checks (tenant_id, check_type, status, detail, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, tenantID, check, status, detail, time.Now().UTC())
	if err != nil && s.logger != nil {
		s.logger.Printf("health record write failed check=%s tenant=%s: %v", check, tenantID, err)
	}
}

// LoggerSink is the no-database fallback: events and health records become
// structured log lines, funnel counters stay in memory.
type LoggerSink struct {
	funnel Funnel
	logger *log.Logger
}

func NewLoggerSink(funnel Funnel, logger *log.Logger) *LoggerSink {
	if funnel == nil {
		funnel = NewMemoryFunnel()
	}
	return &LoggerSink{funnel: funnel, logger: logger}
}

func (s *LoggerSink) LogEvent(_ context.Context, event Event) {
	if s.logger != nil {
		s.logger.Printf("audit action=%s tenant=%s user=%d state=%s expected=%s",
			event.Action, event.TenantID, event.UserID, event.State, event.Expected)
	}
}

func (s *LoggerSink) IncrementFunnel(ctx context.Context, tenantID string, flow domain.FlowKind, event FunnelEvent) {
	if err := s.funnel.Increment(ctx, tenantID, flow, event); err != nil && s.logger != nil {
		s.logger.Printf("funnel increment failed tenant=%s flow=%s event=%s: %v", tenantID, flow, event, err)
	}
}

func (s *LoggerSink) RecordHealth(_ context.Context, tenantID, check string, pass bool, detail string) {
	if s.logger != nil {
		s.logger.Printf("health tenant=%s check=%s pass=%t detail=%s", tenantID, check, pass, detail)
	}
}

var _ Sink = (*DBSink)(nil)
var _ Sink = (*LoggerSink)(nil)
