package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/okulov/classify-console/internal/core/domain"
)

// HistoryRepository persists terminal job outcomes. One row per finished job;
// the provider stats snapshot is stored as JSONB.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent console startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS job_history (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT,
	outcome TEXT NOT NULL,
	successful INT NOT NULL DEFAULT 0,
	failed INT NOT NULL DEFAULT 0,
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	avg_per_product_ms BIGINT NOT NULL DEFAULT 0,
	provider_use JSONB,
	switches INT NOT NULL DEFAULT 0,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_history_finished_at ON job_history (finished_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure job_history schema: %w", err)
	}
	return tx.Commit()
}

func (r *HistoryRepository) RecordSummary(ctx context.Context, summary domain.JobSummary) error {
	providerUse, err := json.Marshal(summary.ProviderUse)
	if err != nil {
		return fmt.Errorf("marshal provider use: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO job_history (job_id, outcome, successful, failed, elapsed_ms, avg_per_product_ms, provider_use, switches, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		nullableText(summary.JobID),
		string(summary.Outcome),
		summary.Successful,
		summary.Failed,
		summary.Elapsed.Milliseconds(),
		summary.AvgPerProduct.Milliseconds(),
		providerUse,
		summary.Switches,
		summary.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record job summary: %w", err)
	}
	return nil
}

// RecentSummaries returns the latest terminal outcomes, newest first.
func (r *HistoryRepository) RecentSummaries(ctx context.Context, limit int) ([]domain.JobSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT COALESCE(job_id, ''), outcome, successful, failed, elapsed_ms, avg_per_product_ms, COALESCE(provider_use, '{}'::jsonb), switches, finished_at
FROM job_history
ORDER BY finished_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list job history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.JobSummary, 0, limit)
	for rows.Next() {
		var (
			summary     domain.JobSummary
			outcome     string
			elapsedMS   int64
			avgMS       int64
			providerRaw []byte
		)
		if err := rows.Scan(
			&summary.JobID,
			&outcome,
			&summary.Successful,
			&summary.Failed,
			&elapsedMS,
			&avgMS,
			&providerRaw,
			&summary.Switches,
			&summary.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job history row: %w", err)
		}
		summary.Outcome = domain.JobStatus(outcome)
		summary.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		summary.AvgPerProduct = time.Duration(avgMS) * time.Millisecond
		if len(providerRaw) > 0 {
			if err := json.Unmarshal(providerRaw, &summary.ProviderUse); err != nil {
				return nil, fmt.Errorf("unmarshal provider use: %w", err)
			}
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job history: %w", err)
	}
	return out, nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
