package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

// SQLWriter persists usage record batches to SQLite/Postgres, mirroring
// internal/requestlog.SQLWriter's dialect handling.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "ferrogw-usage.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite usage log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres usage log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s usage log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY,
	request_id TEXT,
	user_id TEXT,
	model_used TEXT NOT NULL,
	provider TEXT NOT NULL,
	task_type TEXT,
	latency_ms BIGINT NOT NULL,
	tokens INTEGER NOT NULL,
	cost DOUBLE PRECISION NOT NULL,
	success BOOLEAN NOT NULL,
	cached BOOLEAN NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS usage_records (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT,
	user_id TEXT,
	model_used TEXT NOT NULL,
	provider TEXT NOT NULL,
	task_type TEXT,
	latency_ms BIGINT NOT NULL,
	tokens INTEGER NOT NULL,
	cost DOUBLE PRECISION NOT NULL,
	success BOOLEAN NOT NULL,
	cached BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize usage log schema: %w", err)
	}
	return nil
}

// WriteBatch inserts every record in a single transaction, so a partial
// batch failure does not leave half a batch durably recorded.
func (w *SQLWriter) WriteBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage log batch: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO usage_records(request_id, user_id, model_used, provider, task_type, latency_ms, tokens, cost, success, cached, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO usage_records(request_id, user_id, model_used, provider, task_type, latency_ms, tokens, cost, success, cached, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	}

	for _, r := range records {
		if _, err := tx.ExecContext(ctx, query,
			r.RequestID, r.UserID, r.ModelUsed, r.Provider, r.TaskType,
			r.LatencyMS, r.Tokens, r.Cost, r.Success, r.Cached, r.Timestamp,
		); err != nil {
			return fmt.Errorf("write usage record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage log batch: %w", err)
	}
	return nil
}

// Summary aggregates usage_records over a time window, matching
// internal/analytics.Query's fields.
type Summary struct {
	RequestCount  int
	TotalTokens   int64
	TotalCost     float64
	AvgLatencyMS  float64
	CacheHitCount int
	SuccessCount  int
}

// Summarize computes a Summary over [since, until), optionally filtered by
// userID (empty = all users).
func (w *SQLWriter) Summarize(ctx context.Context, since, until time.Time, userID string) (Summary, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(tokens),0), COALESCE(SUM(cost),0), COALESCE(AVG(latency_ms),0),
		COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END),0), COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END),0)
	FROM usage_records WHERE created_at >= ? AND created_at < ?`
	args := []any{since.UTC(), until.UTC()}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query = w.bind(query)

	var s Summary
	row := w.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&s.RequestCount, &s.TotalTokens, &s.TotalCost, &s.AvgLatencyMS, &s.CacheHitCount, &s.SuccessCount); err != nil {
		return Summary{}, fmt.Errorf("summarize usage records: %w", err)
	}
	return s, nil
}

// TopModels returns the n most-used models (by request count) over
// [since, until).
func (w *SQLWriter) TopModels(ctx context.Context, since, until time.Time, n int) ([]string, error) {
	if n <= 0 {
		n = 5
	}
	query := w.bind(`SELECT model_used FROM usage_records WHERE created_at >= ? AND created_at < ?
	GROUP BY model_used ORDER BY COUNT(*) DESC LIMIT ?`)

	rows, err := w.db.QueryContext(ctx, query, since.UTC(), until.UTC(), n)
	if err != nil {
		return nil, fmt.Errorf("top models: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("scan top model row: %w", err)
		}
		out = append(out, model)
	}
	return out, rows.Err()
}

func (w *SQLWriter) bind(query string) string {
	if w.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
