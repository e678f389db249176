package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LineageRecord is the audit row for one ingestion cycle attempt,
// successful or not. Rows are never deleted.
type LineageRecord struct {
	ID                int64     `json:"id"`
	Source            string    `json:"source"`
	StartedAt         time.Time `json:"started_at"`
	RecordsProcessed  int       `json:"records_processed"`
	RecordsSkipped    int       `json:"records_skipped"`
	ManeuversDetected int       `json:"maneuvers_detected"`
	ResponseHash      string    `json:"response_hash"`
	Error             *string   `json:"error,omitempty"`
}

// InsertLineage appends one cycle audit row.
func (db *DB) InsertLineage(ctx context.Context, rec *LineageRecord) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO lineage_records (
			source, started_at_unix, records_processed, records_skipped,
			maneuvers_detected, response_hash, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Source,
		rec.StartedAt.Unix(),
		rec.RecordsProcessed,
		rec.RecordsSkipped,
		rec.ManeuversDetected,
		rec.ResponseHash,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lineage record: %w", classifyErr(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	rec.ID = id
	return nil
}

const selectLineageColumns = `
	SELECT id, source, started_at_unix, records_processed, records_skipped,
	       maneuvers_detected, response_hash, error
	FROM lineage_records
`

// LatestLineage returns the most recent cycle attempt for a source, or
// nil when no cycle has ever run.
func (db *DB) LatestLineage(ctx context.Context, source string) (*LineageRecord, error) {
	row := db.QueryRowContext(ctx, selectLineageColumns+`
		WHERE source = ?
		ORDER BY started_at_unix DESC, id DESC
		LIMIT 1
	`, source)
	return scanLineage(row)
}

// LatestSuccessfulLineage returns the most recent cycle that completed
// without a cycle-level error, or nil if none has.
func (db *DB) LatestSuccessfulLineage(ctx context.Context, source string) (*LineageRecord, error) {
	row := db.QueryRowContext(ctx, selectLineageColumns+`
		WHERE source = ? AND error IS NULL
		ORDER BY started_at_unix DESC, id DESC
		LIMIT 1
	`, source)
	return scanLineage(row)
}

func scanLineage(row *sql.Row) (*LineageRecord, error) {
	var rec LineageRecord
	var startedAt int64
	var errText sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.Source,
		&startedAt,
		&rec.RecordsProcessed,
		&rec.RecordsSkipped,
		&rec.ManeuversDetected,
		&rec.ResponseHash,
		&errText,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lineage record: %w", err)
	}

	rec.StartedAt = time.Unix(startedAt, 0).UTC()
	if errText.Valid {
		rec.Error = &errText.String
	}
	return &rec, nil
}
