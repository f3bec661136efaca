package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"unicode/utf8"

	_ "github.com/lib/pq"

	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

// maxOutputTail bounds the tool output stored per row
const maxOutputTail = 4096

// Ledger records per-item results of pipeline runs in PostgreSQL
type Ledger struct {
	db *sql.DB
}

// Open connects to databaseURL and ensures the results table exists
func Open(ctx context.Context, databaseURL string) (*Ledger, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}
	l, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// New creates a ledger over an existing connection
func New(ctx context.Context, db *sql.DB) (*Ledger, error) {
	l := &Ledger{db: db}

	// Create table if not exists
	if err := l.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}

	return l, nil
}

// ensureTable creates the pipeline_item_results table if it doesn't exist
func (l *Ledger) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS pipeline_item_results (
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			item_id TEXT NOT NULL,
			status TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			command TEXT,
			error TEXT,
			output_tail TEXT,
			duration_ms BIGINT,
			recorded_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (run_id, stage, item_id)
		)
	`

	_, err := l.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create pipeline_item_results table: %w", err)
	}

	log.Printf("✓ pipeline_item_results table ready")
	return nil
}

// Record upserts the result of one item
func (l *Ledger) Record(ctx context.Context, runID string, stage pipeline.Stage, r pipeline.ItemResult) error {
	query := `
		INSERT INTO pipeline_item_results (run_id, stage, item_id, status, exit_code, command, error, output_tail, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (run_id, stage, item_id) DO UPDATE
		SET status = EXCLUDED.status,
		    exit_code = EXCLUDED.exit_code,
		    command = EXCLUDED.command,
		    error = EXCLUDED.error,
		    output_tail = EXCLUDED.output_tail,
		    duration_ms = EXCLUDED.duration_ms,
		    recorded_at = NOW()
	`

	_, err := l.db.ExecContext(ctx, query,
		runID,
		string(stage),
		r.Item.ID,
		string(r.Status),
		r.ExitCode,
		r.Command,
		r.Error,
		tail(r.Output, maxOutputTail),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record item result: %w", err)
	}
	return nil
}

// FailedItems returns the identifiers that failed in the given run
func (l *Ledger) FailedItems(ctx context.Context, stage pipeline.Stage, runID string) ([]string, error) {
	query := `
		SELECT item_id FROM pipeline_item_results
		WHERE run_id = $1 AND stage = $2 AND status <> $3
		ORDER BY recorded_at, item_id
	`

	rows, err := l.db.QueryContext(ctx, query, runID, string(stage), string(pipeline.StatusSucceeded))
	if err != nil {
		return nil, fmt.Errorf("failed to query failed items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// tail keeps at most the last n bytes of s, starting on a rune boundary
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
