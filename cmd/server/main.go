/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the dojang attendance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load .env, then the YAML config (written with defaults on first run)
  3. Validate the anchor date (an invalid anchor stops startup)
  4. Initialize SQLite store
  5. Start the audit scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: ./data/attendance.yaml)
  -env     .env file (default: .env, missing is fine)
  -db      Overrides db_path; use ":memory:" for an in-memory database
  -listen  Overrides listen

ENVIRONMENT:
  ATTENDANCE_LISTEN, ATTENDANCE_DB, ATTENDANCE_ANCHOR,
  ATTENDANCE_LOG_LEVEL, ATTENDANCE_AUDIT_CRON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the audit scheduler
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration sources
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dojang/attendance/api"
	"github.com/dojang/attendance/applog"
	"github.com/dojang/attendance/config"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/store/sqlite"
)

func main() {
	configPath := flag.String("config", "./data/attendance.yaml", "YAML config path")
	envPath := flag.String("env", ".env", ".env file to load if present")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fatal("failed to load env file", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.SetLevel(level)

	pattern, err := cfg.Pattern()
	if err != nil {
		fatal("invalid practice pattern", err)
	}
	agg, err := report.NewAggregator(cfg.Anchor, pattern)
	if err != nil {
		fatal("invalid anchor", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		fatal("failed to initialize database", err)
	}
	defer store.Close()

	audit := api.NewAuditScheduler(store, agg, cfg.AuditCron)
	if err := audit.Start(); err != nil {
		fatal("invalid audit schedule", err)
	}

	handler := api.NewHandler(store, agg, audit)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		applog.Info("server starting", "addr", cfg.Listen, "db", cfg.DBPath, "anchor", cfg.Anchor)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	applog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		applog.Error("server forced to shutdown", err)
	}
	audit.Stop()

	applog.Info("server stopped")
}

func fatal(msg string, err error) {
	applog.Error(msg, err)
	os.Exit(1)
}
