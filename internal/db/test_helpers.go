package db

import (
	"context"
	"os"
	"testing"
	"time"
)

// Helper functions for creating pointer values
func strPtr(s string) *string {
	return &s
}

func timeVal(t time.Time) *time.Time {
	return &t
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	fname := t.Name() + ".db"
	db.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

// createTestObject inserts a tracked object and returns it with its row
// id populated.
func createTestObject(t *testing.T, db *DB, noradID int64, name string) *TrackedObject {
	t.Helper()

	obj := &TrackedObject{
		NoradID:    noradID,
		SourceID:   noradID,
		Name:       name,
		Country:    "US",
		Operator:   "Test Operator",
		OrbitClass: "LEO",
		Mission:    "PAYLOAD",
	}
	if err := db.UpsertObject(context.Background(), obj); err != nil {
		t.Fatalf("UpsertObject failed: %v", err)
	}
	return obj
}

// createTestSnapshot appends a snapshot for the object at the given
// collection time with the given semi-major axis.
func createTestSnapshot(t *testing.T, db *DB, objectID int64, collectedAt time.Time, semiMajorAxis float64) *ElementSnapshot {
	t.Helper()

	snap := &ElementSnapshot{
		ObjectID:      objectID,
		Epoch:         collectedAt.Add(-time.Hour),
		Line1:         "1 25544U 98067A   24032.50000000 .00016717  00000-0  10270-3 0  9005",
		Line2:         "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537",
		SemiMajorAxis: semiMajorAxis,
		Eccentricity:  0.0006703,
		Inclination:   51.6416,
		RAAN:          247.4627,
		ArgPerigee:    130.5360,
		MeanAnomaly:   325.0288,
		CollectedAt:   collectedAt,
		Source:        "test",
	}
	if err := db.AppendSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("AppendSnapshot failed: %v", err)
	}
	return snap
}
