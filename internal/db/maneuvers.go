package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ManeuverEvent is one detected orbital change. Rows are created only
// when a delta exceeded its threshold and are never mutated afterwards;
// corrections are new rows.
type ManeuverEvent struct {
	EventID        string    `json:"event_id"`
	ObjectID       int64     `json:"object_id"`
	NoradID        int64     `json:"norad_id"`
	DetectedAt     time.Time `json:"detected_at"`
	DeltaA         float64   `json:"delta_a"`
	DeltaE         float64   `json:"delta_e"`
	DeltaI         float64   `json:"delta_i"`
	Confidence     float64   `json:"confidence"`
	Classification string    `json:"classification"`
	Notes          *string   `json:"notes,omitempty"`
}

// ManeuverFilter narrows ListManeuvers.
type ManeuverFilter struct {
	NoradID       int64 // 0 means all objects
	MinConfidence float64
	Since         *time.Time
	Limit         int
}

func insertManeuver(ctx context.Context, r runner, event *ManeuverEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.DetectedAt.IsZero() {
		event.DetectedAt = time.Now().UTC()
	}

	_, err := r.ExecContext(ctx, `
		INSERT INTO maneuver_events (
			event_id, object_id, detected_at_unix,
			delta_a, delta_e, delta_i, confidence, classification, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.EventID,
		event.ObjectID,
		event.DetectedAt.Unix(),
		event.DeltaA,
		event.DeltaE,
		event.DeltaI,
		event.Confidence,
		event.Classification,
		event.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert maneuver for object %d: %w", event.ObjectID, classifyErr(err))
	}
	return nil
}

// InsertManeuver records a detected maneuver event. A fresh event id is
// generated when none is set.
func (db *DB) InsertManeuver(ctx context.Context, event *ManeuverEvent) error {
	return insertManeuver(ctx, db.DB, event)
}

// ListManeuvers returns maneuver events newest first, joined with the
// owning object's catalog id.
func (db *DB) ListManeuvers(ctx context.Context, filter ManeuverFilter) ([]ManeuverEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT m.event_id, m.object_id, o.norad_id, m.detected_at_unix,
		       m.delta_a, m.delta_e, m.delta_i, m.confidence, m.classification, m.notes
		FROM maneuver_events m
		JOIN objects o ON o.id = m.object_id
		WHERE m.confidence >= ?
	`
	args := []interface{}{filter.MinConfidence}
	if filter.NoradID != 0 {
		query += " AND o.norad_id = ?"
		args = append(args, filter.NoradID)
	}
	if filter.Since != nil {
		query += " AND m.detected_at_unix >= ?"
		args = append(args, filter.Since.Unix())
	}
	query += " ORDER BY m.detected_at_unix DESC, m.event_id LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maneuvers: %w", err)
	}
	defer rows.Close()

	var events []ManeuverEvent
	for rows.Next() {
		var event ManeuverEvent
		var detectedAt int64
		var notes sql.NullString
		if err := rows.Scan(
			&event.EventID,
			&event.ObjectID,
			&event.NoradID,
			&detectedAt,
			&event.DeltaA,
			&event.DeltaE,
			&event.DeltaI,
			&event.Confidence,
			&event.Classification,
			&notes,
		); err != nil {
			return nil, err
		}
		event.DetectedAt = time.Unix(detectedAt, 0).UTC()
		if notes.Valid {
			event.Notes = &notes.String
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
