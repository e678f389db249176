package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the catalog database connection. The pool is shared between
// the ingestion orchestrator and the query surface; no caller holds an
// exclusive lock beyond normal per-write transactions.
type DB struct {
	*sql.DB
}

// ErrConstraint marks a referential or integrity violation. The write
// for the offending object is aborted; the cycle continues for others.
var ErrConstraint = errors.New("constraint violation")

// ErrUnavailable marks a failure to reach the persistence layer at all.
// It aborts the entire cycle but never crashes the process.
var ErrUnavailable = errors.New("store unavailable")

// OpenDB opens the database without touching the schema. Used by the
// migrate CLI, which manages the schema itself.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// foreign_keys is off by default in sqlite; the snapshot and
	// maneuver tables rely on it.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%w: %s failed: %v", ErrUnavailable, pragma, err)
		}
	}

	return &DB{sqlDB}, nil
}

// NewDB opens the database and brings the schema up to date from the
// embedded migrations.
func NewDB(path string) (*DB, error) {
	database, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to get migrations filesystem: %w", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return database, nil
}

// classifyErr folds driver errors into the store error taxonomy so
// callers can decide between skip-this-object and abort-the-cycle.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint") {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
