package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TrackedObject is one row per unique catalog identifier. The catalog
// (NORAD) id is globally unique and never reused; a set decay date marks
// the record terminal but the row is never deleted.
type TrackedObject struct {
	ID         int64      `json:"id"`
	NoradID    int64      `json:"norad_id"`
	SourceID   int64      `json:"source_id"`
	Name       string     `json:"name"`
	Country    string     `json:"country"`
	Operator   string     `json:"operator"`
	OrbitClass string     `json:"orbit_class"`
	Mission    string     `json:"mission"`
	Payload    string     `json:"payload"`
	Launched   *time.Time `json:"launched"`
	Decayed    *time.Time `json:"decayed"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MaxListLimit bounds list queries to protect the backing store.
const MaxListLimit = 1000

// ObjectFilter narrows ListObjects. Zero values mean "no filter"; Limit
// defaults to and is capped at MaxListLimit.
type ObjectFilter struct {
	OrbitClass string
	Name       string // substring match, case-insensitive
	Limit      int
	Offset     int
}

// UpsertObject inserts the object if its catalog id is unseen, otherwise
// updates the mutable metadata fields only. Historical snapshots are
// never touched. The row id is written back into obj.ID.
func (db *DB) UpsertObject(ctx context.Context, obj *TrackedObject) error {
	obj.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO objects (
			norad_id, source_id, name, country, operator, orbit_class,
			mission, payload, launched_unix, decayed_unix, updated_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(norad_id) DO UPDATE SET
			source_id = excluded.source_id,
			name = excluded.name,
			country = excluded.country,
			operator = excluded.operator,
			orbit_class = excluded.orbit_class,
			mission = excluded.mission,
			payload = excluded.payload,
			launched_unix = excluded.launched_unix,
			decayed_unix = excluded.decayed_unix,
			updated_at_unix = excluded.updated_at_unix
		RETURNING id
	`

	err := db.QueryRowContext(
		ctx,
		query,
		obj.NoradID,
		obj.SourceID,
		obj.Name,
		obj.Country,
		obj.Operator,
		obj.OrbitClass,
		obj.Mission,
		obj.Payload,
		unixPtr(obj.Launched),
		unixPtr(obj.Decayed),
		obj.UpdatedAt.Unix(),
	).Scan(&obj.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert object %d: %w", obj.NoradID, classifyErr(err))
	}
	return nil
}

// GetObjectByNoradID returns the object for a catalog id, or nil if the
// id has never been seen.
func (db *DB) GetObjectByNoradID(ctx context.Context, noradID int64) (*TrackedObject, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, norad_id, source_id, name, country, operator, orbit_class,
		       mission, payload, launched_unix, decayed_unix, updated_at_unix
		FROM objects
		WHERE norad_id = ?
	`, noradID)

	obj, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %d: %w", noradID, err)
	}
	return obj, nil
}

// ListObjects returns objects matching the filter, ordered by catalog id.
func (db *DB) ListObjects(ctx context.Context, filter ObjectFilter) ([]TrackedObject, error) {
	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, norad_id, source_id, name, country, operator, orbit_class,
		       mission, payload, launched_unix, decayed_unix, updated_at_unix
		FROM objects
		WHERE 1=1
	`
	var args []interface{}
	if filter.OrbitClass != "" {
		query += " AND orbit_class = ?"
		args = append(args, filter.OrbitClass)
	}
	if filter.Name != "" {
		query += " AND name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+filter.Name+"%")
	}
	query += " ORDER BY norad_id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var objects []TrackedObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, *obj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return objects, nil
}

// CountObjects returns the total number of objects matching the filter,
// ignoring pagination.
func (db *DB) CountObjects(ctx context.Context, filter ObjectFilter) (int, error) {
	query := `SELECT COUNT(*) FROM objects WHERE 1=1`
	var args []interface{}
	if filter.OrbitClass != "" {
		query += " AND orbit_class = ?"
		args = append(args, filter.OrbitClass)
	}
	if filter.Name != "" {
		query += " AND name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+filter.Name+"%")
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObject(s scanner) (*TrackedObject, error) {
	var obj TrackedObject
	var launched, decayed sql.NullInt64
	var updatedAt int64

	if err := s.Scan(
		&obj.ID,
		&obj.NoradID,
		&obj.SourceID,
		&obj.Name,
		&obj.Country,
		&obj.Operator,
		&obj.OrbitClass,
		&obj.Mission,
		&obj.Payload,
		&launched,
		&decayed,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	obj.Launched = timePtr(launched)
	obj.Decayed = timePtr(decayed)
	obj.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &obj, nil
}

func unixPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
