package db

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// Get migrations filesystem (uses embedded FS in production, local files in dev)
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("Failed to get migrations filesystem: %v", err)
	}

	// Open database connection without running schema initialization
	// (migrations will manage the schema)
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		handleMigrateUp(database, migrationsFS)

	case "down":
		handleMigrateDown(database, migrationsFS)

	case "status":
		handleMigrateStatus(database, migrationsFS)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: orbit-report migrate force <version_number>")
		}
		handleMigrateForce(database, migrationsFS, args[1])

	case "baseline":
		if len(args) < 2 {
			log.Fatal("Usage: orbit-report migrate baseline <version_number>")
		}
		handleMigrateBaseline(database, args[1])

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// handleMigrateUp applies all pending migrations
func handleMigrateUp(database *DB, migrationsFS fs.FS) {
	log.Printf("Running migrations...")
	if err := database.MigrateUp(migrationsFS); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	version, dirty, _ := database.MigrateVersion(migrationsFS)
	log.Printf("✓ All migrations applied (version %d, dirty=%v)", version, dirty)
}

// handleMigrateDown rolls back the most recent migration
func handleMigrateDown(database *DB, migrationsFS fs.FS) {
	log.Printf("Rolling back most recent migration...")
	if err := database.MigrateDown(migrationsFS); err != nil {
		log.Fatalf("Migration down failed: %v", err)
	}
	version, dirty, _ := database.MigrateVersion(migrationsFS)
	log.Printf("✓ Rolled back (version %d, dirty=%v)", version, dirty)
}

// handleMigrateStatus prints the migration status
func handleMigrateStatus(database *DB, migrationsFS fs.FS) {
	status, err := database.GetMigrationStatus(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}
	fmt.Printf("Current version:          %v\n", status["current_version"])
	fmt.Printf("Dirty:                    %v\n", status["dirty"])
	fmt.Printf("schema_migrations exists: %v\n", status["schema_migrations_exists"])
}

// handleMigrateForce forces the version to recover from a dirty state
func handleMigrateForce(database *DB, migrationsFS fs.FS, versionArg string) {
	version, err := strconv.Atoi(versionArg)
	if err != nil {
		log.Fatalf("Invalid version number %q: %v", versionArg, err)
	}
	if err := database.MigrateForce(migrationsFS, version); err != nil {
		log.Fatalf("Force migration failed: %v", err)
	}
	log.Printf("✓ Forced migration version to %d", version)
}

// handleMigrateBaseline marks an existing database as already at a version
func handleMigrateBaseline(database *DB, versionArg string) {
	version, err := strconv.ParseUint(versionArg, 10, 32)
	if err != nil {
		log.Fatalf("Invalid version number %q: %v", versionArg, err)
	}
	if err := database.BaselineAtVersion(uint(version)); err != nil {
		log.Fatalf("Baseline failed: %v", err)
	}
	log.Printf("✓ Baselined at version %d", version)
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: orbit-report migrate <action> [args]

Actions:
  up                  Apply all pending migrations
  down                Roll back the most recent migration
  status              Show current migration version and dirty state
  force <version>     Force version (recover from dirty state)
  baseline <version>  Mark an existing database as already at <version>
  help                Show this help`)
}
