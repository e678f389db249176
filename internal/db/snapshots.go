package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// ElementSnapshot is one time-stamped orbital state observation for an
// object. Rows are append-only, ordered by collection time, and never
// mutated after insert.
type ElementSnapshot struct {
	ID            int64     `json:"id"`
	ObjectID      int64     `json:"object_id"`
	Epoch         time.Time `json:"epoch"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2"`
	SemiMajorAxis float64   `json:"semi_major_axis"`
	Eccentricity  float64   `json:"eccentricity"`
	Inclination   float64   `json:"inclination"`
	RAAN          float64   `json:"raan"`
	ArgPerigee    float64   `json:"arg_perigee"`
	MeanAnomaly   float64   `json:"mean_anomaly"`
	CollectedAt   time.Time `json:"collected_at"`
	Source        string    `json:"source"`
}

// SnapshotRange optionally bounds a snapshot history query.
type SnapshotRange struct {
	Since *time.Time
	Until *time.Time
}

// runner is satisfied by *sql.DB and *sql.Tx so the same insert helpers
// serve both standalone writes and the per-object commit transaction.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const insertSnapshotQuery = `
	INSERT INTO element_snapshots (
		object_id, epoch_unix, line1, line2,
		semi_major_axis, eccentricity, inclination, raan, arg_perigee, mean_anomaly,
		collected_at_unix, source
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertSnapshot(ctx context.Context, r runner, snap *ElementSnapshot) error {
	result, err := r.ExecContext(
		ctx,
		insertSnapshotQuery,
		snap.ObjectID,
		snap.Epoch.Unix(),
		snap.Line1,
		snap.Line2,
		snap.SemiMajorAxis,
		snap.Eccentricity,
		snap.Inclination,
		snap.RAAN,
		snap.ArgPerigee,
		snap.MeanAnomaly,
		snap.CollectedAt.Unix(),
		snap.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot for object %d: %w", snap.ObjectID, classifyErr(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	snap.ID = id
	return nil
}

// AppendSnapshot inserts a new snapshot row. It fails with ErrConstraint
// only on a referential violation (unknown object reference).
func (db *DB) AppendSnapshot(ctx context.Context, snap *ElementSnapshot) error {
	return insertSnapshot(ctx, db.DB, snap)
}

const selectSnapshotColumns = `
	SELECT id, object_id, epoch_unix, line1, line2,
	       semi_major_axis, eccentricity, inclination, raan, arg_perigee, mean_anomaly,
	       collected_at_unix, source
	FROM element_snapshots
`

// LatestSnapshot returns the most recent snapshot for an object by
// collection time, or nil if this is the object's first observation.
func (db *DB) LatestSnapshot(ctx context.Context, objectID int64) (*ElementSnapshot, error) {
	row := db.QueryRowContext(ctx, selectSnapshotColumns+`
		WHERE object_id = ?
		ORDER BY collected_at_unix DESC, id DESC
		LIMIT 1
	`, objectID)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot for object %d: %w", objectID, err)
	}
	return snap, nil
}

// ListSnapshots returns an object's snapshots ordered by collection time
// ascending, bounded by the optional time range.
func (db *DB) ListSnapshots(ctx context.Context, objectID int64, rng SnapshotRange) ([]ElementSnapshot, error) {
	query := selectSnapshotColumns + ` WHERE object_id = ?`
	args := []interface{}{objectID}
	if rng.Since != nil {
		query += " AND collected_at_unix >= ?"
		args = append(args, rng.Since.Unix())
	}
	if rng.Until != nil {
		query += " AND collected_at_unix <= ?"
		args = append(args, rng.Until.Unix())
	}
	query += " ORDER BY collected_at_unix ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for object %d: %w", objectID, err)
	}
	defer rows.Close()

	var snapshots []ElementSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// CommitObservation writes one object's snapshot and, when present, its
// derived maneuver event in a single transaction. Readers therefore see
// either both writes or neither for a given object and cycle.
func (db *DB) CommitObservation(ctx context.Context, snap *ElementSnapshot, event *ManeuverEvent) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			// ErrTxDone means the transaction was already committed
			log.Printf("warning: failed to rollback observation transaction: %v", err)
		}
	}()

	if err := insertSnapshot(ctx, tx, snap); err != nil {
		return err
	}
	if event != nil {
		event.ObjectID = snap.ObjectID
		if err := insertManeuver(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observation for object %d: %w", snap.ObjectID, classifyErr(err))
	}
	return nil
}

func scanSnapshot(s scanner) (*ElementSnapshot, error) {
	var snap ElementSnapshot
	var epoch, collectedAt int64

	if err := s.Scan(
		&snap.ID,
		&snap.ObjectID,
		&epoch,
		&snap.Line1,
		&snap.Line2,
		&snap.SemiMajorAxis,
		&snap.Eccentricity,
		&snap.Inclination,
		&snap.RAAN,
		&snap.ArgPerigee,
		&snap.MeanAnomaly,
		&collectedAt,
		&snap.Source,
	); err != nil {
		return nil, err
	}

	snap.Epoch = time.Unix(epoch, 0).UTC()
	snap.CollectedAt = time.Unix(collectedAt, 0).UTC()
	return &snap, nil
}
