package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

func seedQuestion(t *testing.T, s *MemorySubmissions, topic, text string, age time.Duration) string {
	t.Helper()
	id, err := s.Append(context.Background(), &domain.Submission{
		TenantID:  "t1",
		UserID:    9,
		Kind:      domain.KindQuestion,
		Topic:     topic,
		Text:      text,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatalf("seed append failed: %v", err)
	}
	return id
}

func TestRecentByTenantAndKindOrdersNewestFirst(t *testing.T) {
	s := NewMemorySubmissions()
	seedQuestion(t, s, "صحة", "السؤال الأقدم", 2*time.Hour)
	seedQuestion(t, s, "صحة", "السؤال الأحدث", time.Minute)

	recent, err := s.RecentByTenantAndKind(context.Background(), "t1", domain.KindQuestion, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Text != "السؤال الأحدث" {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	limited, err := s.RecentByTenantAndKind(context.Background(), "t1", domain.KindQuestion, 1)
	if err != nil {
		t.Fatalf("limited recent failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d rows", len(limited))
	}
}

func TestAnsweredBrowseFiltersStatusAndVisibility(t *testing.T) {
	s := NewMemorySubmissions()
	answered := seedQuestion(t, s, "تعليم", "سؤال مجاب", time.Hour)
	s.MarkAnswered(answered, "جواب منشور")
	seedQuestion(t, s, "تعليم", "سؤال معلق", time.Minute)

	rows, err := s.AnsweredByTopic(context.Background(), "t1", "تعليم", 0, 10)
	if err != nil {
		t.Fatalf("answered browse failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Answer != "جواب منشور" {
		t.Fatalf("expected only the answered public row, got %+v", rows)
	}

	if _, err := s.GetAnswered(context.Background(), "t1", answered); err != nil {
		t.Fatalf("expected answered row to resolve: %v", err)
	}
	pending := seedQuestion(t, s, "تعليم", "سؤال آخر", time.Minute)
	if _, err := s.GetAnswered(context.Background(), "t1", pending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a pending row, got %v", err)
	}
}

func TestSearchAnsweredMatchesQuestionAndAnswer(t *testing.T) {
	s := NewMemorySubmissions()
	first := seedQuestion(t, s, "صحة", "متى يفتح المستوصف؟", time.Hour)
	s.MarkAnswered(first, "الافتتاح الشهر القادم")
	second := seedQuestion(t, s, "صحة", "سؤال عن الطرق", time.Minute)
	s.MarkAnswered(second, "جواب عن المستوصف أيضا")

	rows, err := s.SearchAnswered(context.Background(), "t1", "المستوصف", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected matches in question text and answer text, got %d", len(rows))
	}
}

func TestFindRecentRequestWindowAndPhone(t *testing.T) {
	s := NewMemorySubmissions()
	ctx := context.Background()

	if _, err := s.Append(ctx, &domain.Submission{
		TenantID:  "t1",
		UserID:    42,
		Kind:      domain.KindConsultationRequest,
		Phone:     "+212600000001",
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if _, err := s.FindRecentRequest(ctx, "t1", 42, time.Hour, ""); err != nil {
		t.Fatalf("expected in-window request by user id: %v", err)
	}
	// Same phone shared from another account still counts as a duplicate.
	if _, err := s.FindRecentRequest(ctx, "t1", 99, time.Hour, "+212600000001"); err != nil {
		t.Fatalf("expected in-window request by phone: %v", err)
	}
	if _, err := s.FindRecentRequest(ctx, "t1", 99, time.Hour, "+212600000002"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user and phone, got %v", err)
	}
	if _, err := s.FindRecentRequest(ctx, "t1", 42, 5*time.Minute, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound outside the window, got %v", err)
	}
}
