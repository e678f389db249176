package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestLatestSnapshot_FirstObservation tests that an object with no
// history returns nil rather than an error
func TestLatestSnapshot_FirstObservation(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")

	snap, err := db.LatestSnapshot(context.Background(), obj.ID)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if snap != nil {
		t.Errorf("Expected nil for object with no snapshots, got %+v", snap)
	}
}

// TestLatestSnapshot_PicksNewest tests ordering by collection time
func TestLatestSnapshot_PicksNewest(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")
	base := time.Now().UTC().Truncate(time.Second)

	createTestSnapshot(t, db, obj.ID, base.Add(-2*time.Hour), 6795.0)
	createTestSnapshot(t, db, obj.ID, base.Add(-1*time.Hour), 6795.1)
	newest := createTestSnapshot(t, db, obj.ID, base, 6795.2)

	snap, err := db.LatestSnapshot(context.Background(), obj.ID)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if snap.ID != newest.ID {
		t.Errorf("Expected newest snapshot id %d, got %d", newest.ID, snap.ID)
	}
	if snap.SemiMajorAxis != 6795.2 {
		t.Errorf("Expected semi-major axis 6795.2, got %f", snap.SemiMajorAxis)
	}
}

// TestAppendSnapshot_UnknownObject tests that a referential violation
// surfaces as ErrConstraint
func TestAppendSnapshot_UnknownObject(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	snap := &ElementSnapshot{
		ObjectID:      99999, // no such object row
		Epoch:         time.Now().UTC(),
		Line1:         "x",
		Line2:         "y",
		SemiMajorAxis: 6795.0,
		CollectedAt:   time.Now().UTC(),
		Source:        "test",
	}

	err := db.AppendSnapshot(context.Background(), snap)
	if err == nil {
		t.Fatal("Expected error for unknown object reference, got nil")
	}
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("Expected ErrConstraint, got %v", err)
	}
}

// TestListSnapshots_OrderAndRange tests chronological ordering and the
// optional time bounds
func TestListSnapshots_OrderAndRange(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")
	base := time.Now().UTC().Truncate(time.Second)

	times := []time.Time{
		base.Add(-3 * time.Hour),
		base.Add(-2 * time.Hour),
		base.Add(-1 * time.Hour),
		base,
	}
	for i, ts := range times {
		createTestSnapshot(t, db, obj.ID, ts, 6795.0+float64(i)*0.1)
	}

	all, err := db.ListSnapshots(context.Background(), obj.ID, SnapshotRange{})
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 snapshots, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CollectedAt.Before(all[i-1].CollectedAt) {
			t.Errorf("Snapshots out of order at position %d: %v before %v",
				i, all[i].CollectedAt, all[i-1].CollectedAt)
		}
	}

	since := base.Add(-2 * time.Hour)
	until := base.Add(-1 * time.Hour)
	bounded, err := db.ListSnapshots(context.Background(), obj.ID, SnapshotRange{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("ListSnapshots with range failed: %v", err)
	}
	if len(bounded) != 2 {
		t.Errorf("Expected 2 snapshots in range, got %d", len(bounded))
	}
}

// TestListSnapshots_IsolatedPerObject tests that history queries never
// leak rows from other objects
func TestListSnapshots_IsolatedPerObject(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	a := createTestObject(t, db, 25544, "ISS (ZARYA)")
	b := createTestObject(t, db, 43700, "GALAXY 32")

	createTestSnapshot(t, db, a.ID, time.Now().UTC(), 6795.0)
	createTestSnapshot(t, db, b.ID, time.Now().UTC(), 42164.0)

	snapshots, err := db.ListSnapshots(context.Background(), a.ID, SnapshotRange{})
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].ObjectID != a.ID {
		t.Errorf("Expected snapshot for object %d, got %d", a.ID, snapshots[0].ObjectID)
	}
}

// TestCommitObservation_SnapshotOnly tests the transactional write path
// for a stable observation
func TestCommitObservation_SnapshotOnly(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")

	snap := &ElementSnapshot{
		ObjectID:      obj.ID,
		Epoch:         time.Now().UTC(),
		Line1:         "x",
		Line2:         "y",
		SemiMajorAxis: 6795.0,
		CollectedAt:   time.Now().UTC(),
		Source:        "test",
	}
	if err := db.CommitObservation(context.Background(), snap, nil); err != nil {
		t.Fatalf("CommitObservation failed: %v", err)
	}
	if snap.ID == 0 {
		t.Error("Expected snapshot ID to be set after commit")
	}

	events, err := db.ListManeuvers(context.Background(), ManeuverFilter{})
	if err != nil {
		t.Fatalf("ListManeuvers failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no maneuvers, got %d", len(events))
	}
}

// TestCommitObservation_WithManeuver tests that the snapshot and its
// maneuver land together
func TestCommitObservation_WithManeuver(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")

	snap := &ElementSnapshot{
		ObjectID:      obj.ID,
		Epoch:         time.Now().UTC(),
		Line1:         "x",
		Line2:         "y",
		SemiMajorAxis: 6795.02,
		CollectedAt:   time.Now().UTC(),
		Source:        "test",
	}
	event := &ManeuverEvent{
		DetectedAt:     snap.CollectedAt,
		DeltaA:         0.02,
		Confidence:     0.5,
		Classification: "altitude",
	}

	if err := db.CommitObservation(context.Background(), snap, event); err != nil {
		t.Fatalf("CommitObservation failed: %v", err)
	}

	if event.EventID == "" {
		t.Error("Expected event ID to be generated")
	}
	if event.ObjectID != obj.ID {
		t.Errorf("Expected event object id %d, got %d", obj.ID, event.ObjectID)
	}

	events, err := db.ListManeuvers(context.Background(), ManeuverFilter{})
	if err != nil {
		t.Fatalf("ListManeuvers failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 maneuver, got %d", len(events))
	}
	if events[0].Classification != "altitude" {
		t.Errorf("Expected classification altitude, got %q", events[0].Classification)
	}
	if events[0].NoradID != 25544 {
		t.Errorf("Expected catalog id 25544 on joined event, got %d", events[0].NoradID)
	}
}

// TestCommitObservation_RollsBackTogether tests that a failed maneuver
// insert takes the snapshot down with it
func TestCommitObservation_RollsBackTogether(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	obj := createTestObject(t, db, 25544, "ISS (ZARYA)")

	// Seed a maneuver, then reuse its event id to force a primary key
	// violation inside the transaction.
	seeded := &ManeuverEvent{
		ObjectID:       obj.ID,
		DeltaA:         0.02,
		Confidence:     0.5,
		Classification: "altitude",
	}
	if err := db.InsertManeuver(context.Background(), seeded); err != nil {
		t.Fatalf("InsertManeuver failed: %v", err)
	}

	snap := &ElementSnapshot{
		ObjectID:      obj.ID,
		Epoch:         time.Now().UTC(),
		Line1:         "x",
		Line2:         "y",
		SemiMajorAxis: 6795.0,
		CollectedAt:   time.Now().UTC(),
		Source:        "test",
	}
	dup := &ManeuverEvent{
		EventID:        seeded.EventID,
		ObjectID:       obj.ID,
		DeltaA:         0.03,
		Confidence:     0.6,
		Classification: "altitude",
	}

	err := db.CommitObservation(context.Background(), snap, dup)
	if err == nil {
		t.Fatal("Expected error for duplicate event id, got nil")
	}
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("Expected ErrConstraint, got %v", err)
	}

	// The snapshot from the failed transaction must not be visible.
	snapshots, err := db.ListSnapshots(context.Background(), obj.ID, SnapshotRange{})
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("Expected 0 snapshots after rollback, got %d", len(snapshots))
	}
}
