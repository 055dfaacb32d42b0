package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// Submissions abstracts the append-mostly submission persistence the
// conversation engine writes to. Reads exist only for duplicate checks and
// the answered-question browse surface.
type Submissions interface {
	Append(ctx context.Context, submission *domain.Submission) (string, error)
	RecentByTenantAndKind(ctx context.Context, tenantID string, kind domain.SubmissionKind, limit int) ([]domain.Submission, error)
	// FindRecentRequest returns the newest consultation request from the same
	// (tenant, user) pair within the window; phone, when non-empty, also
	// matches requests sharing the number regardless of user.
	FindRecentRequest(ctx context.Context, tenantID string, userID int64, within time.Duration, phone string) (*domain.Submission, error)
	AnsweredByTopic(ctx context.Context, tenantID, topic string, offset, limit int) ([]domain.Submission, error)
	SearchAnswered(ctx context.Context, tenantID, query string, limit int) ([]domain.Submission, error)
	GetAnswered(ctx context.Context, tenantID, id string) (*domain.Submission, error)
	Ping(ctx context.Context) error
}

// MemorySubmissions stores submissions in memory for tests and local runs.
type MemorySubmissions struct {
	mu    sync.RWMutex
	items []*domain.Submission
}

func NewMemorySubmissions() *MemorySubmissions {
	return &MemorySubmissions{}
}

func (s *MemorySubmissions) Append(_ context.Context, submission *domain.Submission) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *submission
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	clone.UpdatedAt = clone.CreatedAt
	s.items = append(s.items, &clone)
	return clone.ID, nil
}

func (s *MemorySubmissions) RecentByTenantAndKind(
	_ context.Context,
	tenantID string,
	kind domain.SubmissionKind,
	limit int,
) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Submission, 0, limit)
	for _, item := range s.items {
		if item.TenantID == tenantID && item.Kind == kind {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemorySubmissions) FindRecentRequest(
	_ context.Context,
	tenantID string,
	userID int64,
	within time.Duration,
	phone string,
) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-within)
	var newest *domain.Submission
	for _, item := range s.items {
		if item.TenantID != tenantID || item.Kind != domain.KindConsultationRequest {
			continue
		}
		if item.CreatedAt.Before(cutoff) {
			continue
		}
		if item.UserID != userID && (phone == "" || item.Phone != phone) {
			continue
		}
		if newest == nil || item.CreatedAt.After(newest.CreatedAt) {
			newest = item
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	clone := *newest
	return &clone, nil
}

func (s *MemorySubmissions) AnsweredByTopic(
	_ context.Context,
	tenantID, topic string,
	offset, limit int,
) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Submission
	for _, item := range s.items {
		if item.TenantID == tenantID && item.Kind == domain.KindQuestion &&
			item.Status == domain.StatusAnswered && item.Public && item.Topic == topic {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, offset, limit), nil
}

func (s *MemorySubmissions) SearchAnswered(
	_ context.Context,
	tenantID, query string,
	limit int,
) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	var matched []domain.Submission
	for _, item := range s.items {
		if item.TenantID != tenantID || item.Kind != domain.KindQuestion ||
			item.Status != domain.StatusAnswered || !item.Public {
			continue
		}
		if strings.Contains(strings.ToLower(item.Text), needle) ||
			strings.Contains(strings.ToLower(item.Answer), needle) {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, 0, limit), nil
}

func (s *MemorySubmissions) GetAnswered(_ context.Context, tenantID, id string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.TenantID == tenantID && item.ID == id &&
			item.Status == domain.StatusAnswered && item.Public {
			clone := *item
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemorySubmissions) Ping(_ context.Context) error {
	return nil
}

// MarkAnswered flips a stored submission to an answered, public state; only
// tests drive it, moderation tooling owns the real write path.
func (s *MemorySubmissions) MarkAnswered(id, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			item.Status = domain.StatusAnswered
			item.Answer = answer
			item.Public = true
			item.UpdatedAt = time.Now().UTC()
		}
	}
}

func (s *MemorySubmissions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func page(items []domain.Submission, offset, limit int) []domain.Submission {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
