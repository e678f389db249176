package db

import (
	"io/fs"
	"strings"
	"testing"
)

// TestEmbeddedMigrationsFS verifies the embedded migrations filesystem structure
func TestEmbeddedMigrationsFS(t *testing.T) {
	origDevMode := DevMode
	DevMode = false
	defer func() { DevMode = origDevMode }()

	migFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS() failed: %v", err)
	}

	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		t.Fatalf("Failed to read migrations filesystem: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected embedded migrations, found none")
	}

	// Every migration must come as an up/down pair.
	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("Unexpected file in migrations: %s", entry.Name())
		}
	}
	if ups != downs {
		t.Errorf("Expected matching up/down migrations, got %d up and %d down", ups, downs)
	}
}
