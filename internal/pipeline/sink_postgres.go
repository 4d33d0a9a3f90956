package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"
)

// PostgresSink upserts the ledger into the mass_processing_results table,
// keyed by run id and ledger position, so repeated or empty UIDs keep one
// row each just as in the CSV table.
type PostgresSink struct {
	db *sql.DB
}

// OpenPostgresSink connects to dsn and prepares the results table.
func OpenPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sink, err := NewPostgresSink(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewPostgresSink wraps an existing connection and creates the results
// table if it doesn't exist.
func NewPostgresSink(ctx context.Context, db *sql.DB) (*PostgresSink, error) {
	s := &PostgresSink{db: db}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure results table: %w", err)
	}
	return s, nil
}

func (s *PostgresSink) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS mass_processing_results (
			run_id TEXT NOT NULL,
			case_index INTEGER NOT NULL,
			uid TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT,
			output_path TEXT,
			mask_paths TEXT[],
			regions_drawn INTEGER,
			duration_ms BIGINT,
			processed_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (run_id, case_index)
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create mass_processing_results table: %w", err)
	}

	log.Printf("✓ mass_processing_results table ready")
	return nil
}

// Name implements ResultSink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements ResultSink. All rows are written in one transaction.
func (s *PostgresSink) Write(ctx context.Context, runID string, results []Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrSink, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO mass_processing_results
			(run_id, case_index, uid, success, error, output_path, mask_paths, regions_drawn, duration_ms, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (run_id, case_index) DO UPDATE
		SET uid = EXCLUDED.uid,
		    success = EXCLUDED.success,
		    error = EXCLUDED.error,
		    output_path = EXCLUDED.output_path,
		    mask_paths = EXCLUDED.mask_paths,
		    regions_drawn = EXCLUDED.regions_drawn,
		    duration_ms = EXCLUDED.duration_ms,
		    processed_at = NOW()
	`

	for i, r := range results {
		if _, err := tx.ExecContext(ctx, query, postgresRow(runID, i, r)...); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", ErrSink, r.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrSink, err)
	}
	return nil
}

// postgresRow returns the insert arguments for the result at ledger
// position index.
func postgresRow(runID string, index int, r Result) []interface{} {
	paths := make([]string, len(r.Masks))
	for i, m := range r.Masks {
		paths[i] = m.Path
	}

	var errText sql.NullString
	if !r.Success {
		errText = sql.NullString{String: r.Error, Valid: true}
	}

	return []interface{}{
		runID, index, ledgerUID(r.UID), r.Success, errText, r.OutputPath,
		pq.Array(paths), r.RegionsDrawn(), r.Duration.Milliseconds(),
	}
}

// Close closes the underlying connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// CountRun returns the number of stored rows and successes for runID.
func (s *PostgresSink) CountRun(ctx context.Context, runID string) (total, succeeded int, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE success) FROM mass_processing_results WHERE run_id = $1`
	if err := s.db.QueryRowContext(ctx, query, runID).Scan(&total, &succeeded); err != nil {
		return 0, 0, fmt.Errorf("failed to count run %s: %w", runID, err)
	}
	return total, succeeded, nil
}
