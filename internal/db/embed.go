package db

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode switches migration loading to the on-disk migrations
// directory so schema changes can be iterated without rebuilding.
var DevMode = false

// getMigrationsFS returns the migrations filesystem: the embedded copy
// in production, local files in dev mode.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/db/migrations"), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}
