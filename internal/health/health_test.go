package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/domain"
)

func TestClampInterval(t *testing.T) {
	if got := ClampInterval(10 * time.Second); got != MinInterval {
		t.Fatalf("expected clamp up to %s, got %s", MinInterval, got)
	}
	if got := ClampInterval(time.Hour); got != MaxInterval {
		t.Fatalf("expected clamp down to %s, got %s", MaxInterval, got)
	}
	if got := ClampInterval(2 * time.Minute); got != 2*time.Minute {
		t.Fatalf("expected an in-range interval untouched, got %s", got)
	}
}

func TestConflictRecorderRateLimitsPerTenant(t *testing.T) {
	sink := audit.NewMemorySink()
	recorder := NewConflictRecorder(sink, nil, 10*time.Minute)
	base := time.Now()
	recorder.now = func() time.Time { return base }
	ctx := context.Background()

	if !recorder.Observe(ctx, "t1") {
		t.Fatalf("expected the first observation recorded")
	}
	if recorder.Observe(ctx, "t1") {
		t.Fatalf("expected a repeat within the window suppressed")
	}
	if !recorder.Observe(ctx, "t2") {
		t.Fatalf("expected another tenant to have its own window")
	}

	recorder.now = func() time.Time { return base.Add(11 * time.Minute) }
	if !recorder.Observe(ctx, "t1") {
		t.Fatalf("expected a new record after the window passed")
	}
	if got := sink.EventCount("poller_conflict_detected"); got != 3 {
		t.Fatalf("expected 3 recorded conflicts, got %d", got)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeInfo struct {
	startedAt  time.Time
	lastUpdate time.Time
}

func (i fakeInfo) TenantID() string        { return "t1" }
func (i fakeInfo) StartedAt() time.Time    { return i.startedAt }
func (i fakeInfo) LastUpdateAt() time.Time { return i.lastUpdate }

type fakeProbe struct {
	err  error
	sent int
}

func (p *fakeProbe) Send(_ context.Context, _ domain.Outbound) error {
	p.sent++
	return p.err
}

func findRecord(records []audit.HealthRecord, check string) (audit.HealthRecord, bool) {
	for _, record := range records {
		if record.Check == check {
			return record, true
		}
	}
	return audit.HealthRecord{}, false
}

func TestMonitorPassRecordsAllSignals(t *testing.T) {
	sink := audit.NewMemorySink()
	probe := &fakeProbe{}
	monitor := NewMonitor(fakePinger{}, sink, probe, nil, MonitorConfig{
		Recency:     30 * time.Minute,
		ProbeChatID: 900,
	})

	monitor.pass(context.Background(), fakeInfo{
		startedAt:  time.Now().Add(-time.Hour),
		lastUpdate: time.Now().Add(-time.Minute),
	})

	records := sink.HealthRecords()
	for _, check := range []string{"store", "update_flow", "send_probe"} {
		record, ok := findRecord(records, check)
		if !ok {
			t.Fatalf("expected a %s record", check)
		}
		if !record.Pass {
			t.Fatalf("expected %s to pass, got %+v", check, record)
		}
	}
	if probe.sent != 1 {
		t.Fatalf("expected one probe message, got %d", probe.sent)
	}
}

func TestMonitorPassFlagsFailures(t *testing.T) {
	sink := audit.NewMemorySink()
	monitor := NewMonitor(fakePinger{err: errors.New("pool exhausted")}, sink, nil, nil, MonitorConfig{
		Recency: 30 * time.Minute,
	})

	monitor.pass(context.Background(), fakeInfo{
		startedAt: time.Now().Add(-2 * time.Hour),
		// no update ever received, grace from start time has run out
	})

	records := sink.HealthRecords()
	if record, ok := findRecord(records, "store"); !ok || record.Pass {
		t.Fatalf("expected the store check to fail, got %+v", record)
	}
	if record, ok := findRecord(records, "update_flow"); !ok || record.Pass {
		t.Fatalf("expected stale update flow to fail, got %+v", record)
	}
	if _, ok := findRecord(records, "send_probe"); ok {
		t.Fatalf("expected no probe record without a probe channel")
	}
}
