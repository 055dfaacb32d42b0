// Package health runs the per-tenant liveness probes and the platform
// conflict alerting.
package health

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/domain"
)

const (
	MinInterval = 60 * time.Second
	MaxInterval = 300 * time.Second
)

// ClampInterval bounds the configured probe cadence to the supported window.
func ClampInterval(interval time.Duration) time.Duration {
	if interval < MinInterval {
		return MinInterval
	}
	if interval > MaxInterval {
		return MaxInterval
	}
	return interval
}

// Pinger is the store-reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PollerInfo is what the monitor needs to know about a running poller.
type PollerInfo interface {
	TenantID() string
	StartedAt() time.Time
	LastUpdateAt() time.Time
}

// ProbeSender is the optional send-path probe; transport.Client satisfies it.
type ProbeSender interface {
	Send(ctx context.Context, out domain.Outbound) error
}

// Monitor records three independent signals per pass: store reachability,
// update recency, and optionally a send probe to a configured channel.
type Monitor struct {
	store    Pinger
	sink     audit.Sink
	sender   ProbeSender
	probe    int64
	interval time.Duration
	recency  time.Duration
	logger   *log.Logger
}

type MonitorConfig struct {
	Interval time.Duration
	// Recency is how fresh the last received update must be for the
	// update-flow signal to pass.
	Recency     time.Duration
	ProbeChatID int64
}

func NewMonitor(store Pinger, sink audit.Sink, sender ProbeSender, logger *log.Logger, cfg MonitorConfig) *Monitor {
	if cfg.Recency <= 0 {
		cfg.Recency = 30 * time.Minute
	}
	return &Monitor{
		store:    store,
		sink:     sink,
		sender:   sender,
		probe:    cfg.ProbeChatID,
		interval: ClampInterval(cfg.Interval),
		recency:  cfg.Recency,
		logger:   logger,
	}
}

// Run probes until ctx is cancelled. It is started as an independent task
// beside each poller's update loop.
func (m *Monitor) Run(ctx context.Context, info PollerInfo) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pass(ctx, info)
		}
	}
}

func (m *Monitor) pass(ctx context.Context, info PollerInfo) {
	tenantID := info.TenantID()

	if err := m.store.Ping(ctx); err != nil {
		m.sink.RecordHealth(ctx, tenantID, "store", false, err.Error())
	} else {
		m.sink.RecordHealth(ctx, tenantID, "store", true, "")
	}

	// A poller that has never seen an update gets grace from its start time.
	last := info.LastUpdateAt()
	if last.IsZero() {
		last = info.StartedAt()
	}
	age := time.Since(last)
	m.sink.RecordHealth(ctx, tenantID, "update_flow", age <= m.recency, fmt.Sprintf("last activity %s ago", age.Round(time.Second)))

	if m.sender != nil && m.probe != 0 {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := m.sender.Send(probeCtx, domain.Outbound{ChatID: m.probe, Text: "."})
		cancel()
		if err != nil {
			m.sink.RecordHealth(ctx, tenantID, "send_probe", false, err.Error())
		} else {
			m.sink.RecordHealth(ctx, tenantID, "send_probe", true, "")
		}
	}
}
