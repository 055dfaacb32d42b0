package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

type PostgresSubmissions struct {
	pool *pgxpool.Pool
}

func NewPostgresSubmissions(ctx context.Context, databaseURL string) (*PostgresSubmissions, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresSubmissions{pool: pool}, nil
}

func NewPostgresSubmissionsFromPool(pool *pgxpool.Pool) *PostgresSubmissions {
	return &PostgresSubmissions{pool: pool}
}

func (s *PostgresSubmissions) Close() {
	s.pool.Close()
}

func (s *PostgresSubmissions) Append(ctx context.Context, submission *domain.Submission) (string, error) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = submission.CreatedAt

	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (
			id, tenant_id, user_id, kind, topic, text,
			author_name, author_role, author_constituency, phone,
			status, answer, public, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		submission.ID,
		submission.TenantID,
		submission.UserID,
		string(submission.Kind),
		submission.Topic,
		submission.Text,
		submission.AuthorName,
		submission.AuthorRole,
		submission.AuthorConstituency,
		submission.Phone,
		string(submission.Status),
		submission.Answer,
		submission.Public,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	return submission.ID, nil
}

const submissionColumns = `
	id, tenant_id, user_id, kind, topic, text,
	author_name, author_role, author_constituency, phone,
	status, answer, public, created_at, updated_at`

func (s *PostgresSubmissions) RecentByTenantAndKind(
	ctx context.Context,
	tenantID string,
	kind domain.SubmissionKind,
	limit int,
) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE tenant_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *PostgresSubmissions) FindRecentRequest(
	ctx context.Context,
	tenantID string,
	userID int64,
	within time.Duration,
	phone string,
) (*domain.Submission, error) {
	cutoff := time.Now().UTC().Add(-within)
	row := s.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE tenant_id = $1
			AND kind = $2
			AND created_at >= $3
			AND (user_id = $4 OR ($5 <> '' AND phone = $5))
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, string(domain.KindConsultationRequest), cutoff, userID, phone)

	submission, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query recent request: %w", err)
	}
	return submission, nil
}

func (s *PostgresSubmissions) AnsweredByTopic(
	ctx context.Context,
	tenantID, topic string,
	offset, limit int,
) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE tenant_id = $1 AND kind = $2 AND status = $3 AND public = TRUE AND topic = $4
		ORDER BY created_at DESC
		OFFSET $5 LIMIT $6
	`, tenantID, string(domain.KindQuestion), string(domain.StatusAnswered), topic, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query answered by topic: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *PostgresSubmissions) SearchAnswered(
	ctx context.Context,
	tenantID, query string,
	limit int,
) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE tenant_id = $1 AND kind = $2 AND status = $3 AND public = TRUE
			AND (text ILIKE '%' || $4 || '%' OR answer ILIKE '%' || $4 || '%')
		ORDER BY created_at DESC
		LIMIT $5
	`, tenantID, string(domain.KindQuestion), string(domain.StatusAnswered), query, limit)
	if err != nil {
		return nil, fmt.Errorf("search answered: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *PostgresSubmissions) GetAnswered(ctx context.Context, tenantID, id string) (*domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE tenant_id = $1 AND id = $2 AND status = $3 AND public = TRUE
	`, tenantID, id, string(domain.StatusAnswered))

	submission, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get answered submission: %w", err)
	}
	return submission, nil
}

func (s *PostgresSubmissions) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanSubmissions(rows pgx.Rows) ([]domain.Submission, error) {
	var submissions []domain.Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		submissions = append(submissions, *submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}
	return submissions, nil
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		submission domain.Submission
		kind       string
		status     string
	)
	err := row.Scan(
		&submission.ID,
		&submission.TenantID,
		&submission.UserID,
		&kind,
		&submission.Topic,
		&submission.Text,
		&submission.AuthorName,
		&submission.AuthorRole,
		&submission.AuthorConstituency,
		&submission.Phone,
		&status,
		&submission.Answer,
		&submission.Public,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	submission.Kind = domain.SubmissionKind(kind)
	submission.Status = domain.SubmissionStatus(status)
	return &submission, nil
}
