package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/orbit.report/internal/api"
	"github.com/banshee-data/orbit.report/internal/catalog"
	"github.com/banshee-data/orbit.report/internal/config"
	"github.com/banshee-data/orbit.report/internal/db"
	"github.com/banshee-data/orbit.report/internal/detect"
	"github.com/banshee-data/orbit.report/internal/ingest"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (migrations read from local files)")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "catalog.db", "Path to the sqlite database file")
	sourceURL  = flag.String("source-url", "", "Catalog source URL (default: KeepTrack v2 API)")
	configPath = flag.String("config", "", "Path to JSON config file")
	interval   = flag.Duration("interval", 0, "Sync interval (overrides config, default 1h)")
	runOnce    = flag.Bool("once", false, "Run a single ingestion cycle and exit")
)

func main() {
	flag.Parse()

	// The migrate subcommand manages schema directly and exits.
	if flag.Arg(0) == "migrate" {
		db.DevMode = *devMode
		db.RunMigrateCommand(flag.Args()[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db.DevMode = *devMode
	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	srcURL := *sourceURL
	if srcURL == "" {
		srcURL = cfg.URL()
	}
	client := catalog.NewClient(srcURL)
	client.Timeout = cfg.Timeout()
	client.GeoToleranceKm = cfg.GeoTolerance()

	orch := ingest.NewOrchestrator(client, database, cfg.SourceName())
	orch.Thresholds = detect.Thresholds{
		SemiMajorAxisKm: cfg.SemiMajorAxisThreshold(),
		InclinationDeg:  cfg.InclinationThreshold(),
	}

	if *runOnce {
		summary := orch.RunCycle(context.Background())
		if summary.Err != nil {
			log.Fatalf("Ingestion cycle failed: %v", summary.Err)
		}
		return
	}

	syncInterval := cfg.Interval()
	if *interval > 0 {
		syncInterval = *interval
	}
	scheduler := ingest.NewScheduler(orch, syncInterval)

	// Wait group covers the scheduler loop and the HTTP server routine
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)

		// mount the catalog API handlers
		apiServer := api.NewServer(database, scheduler, cfg.SourceName(), syncInterval)
		apiMux := apiServer.ServeMux()
		mux.Handle("/api/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
