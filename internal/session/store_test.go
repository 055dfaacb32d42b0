package session

import (
	"testing"
	"time"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

func TestGetCreatesLazilyAndReuses(t *testing.T) {
	s := NewStore(time.Hour)

	first := s.Get("t1", 42)
	if first.State != domain.StateMain {
		t.Fatalf("expected a fresh session at main, got %s", first.State)
	}
	first.State = domain.StateQuestionAskText

	again := s.Get("t1", 42)
	if again != first {
		t.Fatalf("expected the same session instance on the second get")
	}
	if s.Get("t1", 43) == first || s.Get("t2", 42) == first {
		t.Fatalf("expected distinct sessions per tenant/user pair")
	}
}

func TestGetReplacesIdleSession(t *testing.T) {
	s := NewStore(30 * time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	stale := s.Get("t1", 42)
	stale.State = domain.StateRequestName

	s.now = func() time.Time { return base.Add(31 * time.Minute) }
	fresh := s.Get("t1", 42)
	if fresh == stale {
		t.Fatalf("expected an idle session to be replaced")
	}
	if fresh.State != domain.StateMain {
		t.Fatalf("expected the replacement to start at main, got %s", fresh.State)
	}
}

func TestDropTenantForgetsOnlyThatTenant(t *testing.T) {
	s := NewStore(time.Hour)
	s.Get("t1", 1)
	s.Get("t1", 2)
	s.Get("t2", 1)

	s.DropTenant("t1")
	if s.Len() != 1 {
		t.Fatalf("expected only the other tenant's session to survive, got %d", s.Len())
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	s := NewStore(30 * time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Get("t1", 1)
	s.now = func() time.Time { return base.Add(20 * time.Minute) }
	s.Get("t1", 2) // still fresh at sweep time

	s.now = func() time.Time { return base.Add(45 * time.Minute) }
	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected one idle session removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one session left, got %d", s.Len())
	}
}
