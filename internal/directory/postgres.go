package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// PostgresDirectory reads tenant snapshots from the administration database.
// It never writes: tenant CRUD belongs to the admin API.
type PostgresDirectory struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgresDirectory(ctx context.Context, databaseURL string, logger *log.Logger) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresDirectory{pool: pool, logger: logger}, nil
}

func NewPostgresDirectoryFromPool(pool *pgxpool.Pool, logger *log.Logger) *PostgresDirectory {
	return &PostgresDirectory{pool: pool, logger: logger}
}

func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

func (d *PostgresDirectory) ListActive(ctx context.Context) ([]domain.TenantConfig, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, display_name, token, bio, party, constituency,
			programs, commitments, question_topics, offices,
			operator_chat_ids, probe_chat_id
		FROM tenants
		WHERE active = TRUE AND token <> ''
		ORDER BY id
	`)
	if err != nil {
		if d.logger != nil {
			d.logger.Printf("tenant directory unavailable, serving empty set: %v", err)
		}
		return nil, nil
	}
	defer rows.Close()

	var tenants []domain.TenantConfig
	for rows.Next() {
		var (
			tenant     domain.TenantConfig
			officesRaw []byte
			probeChat  *int64
		)
		err := rows.Scan(
			&tenant.ID,
			&tenant.DisplayName,
			&tenant.Token,
			&tenant.Profile.Bio,
			&tenant.Profile.Party,
			&tenant.Profile.Constituency,
			&tenant.Profile.Programs,
			&tenant.Profile.Commitments,
			&tenant.Profile.QuestionTopics,
			&officesRaw,
			&tenant.Profile.OperatorChatIDs,
			&probeChat,
		)
		if err != nil {
			if d.logger != nil {
				d.logger.Printf("skip malformed tenant row: %v", err)
			}
			continue
		}
		tenant.Active = true
		if probeChat != nil {
			tenant.Profile.ProbeChatID = *probeChat
		}
		if len(officesRaw) > 0 {
			if err := json.Unmarshal(officesRaw, &tenant.Profile.Offices); err != nil && d.logger != nil {
				d.logger.Printf("skip malformed offices for tenant %s: %v", tenant.ID, err)
			}
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		if d.logger != nil {
			d.logger.Printf("tenant directory read interrupted, serving empty set: %v", err)
		}
		return nil, nil
	}
	return tenants, nil
}
