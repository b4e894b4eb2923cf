// Command foremand is the foreman server daemon. It owns the SQLite
// database and serves the REST API, the metrics endpoint, and the SSE
// event stream that the CLI and dashboards consume.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/foreman/agent"
	"github.com/GoCodeAlone/foreman/audit"
	"github.com/GoCodeAlone/foreman/board"
	"github.com/GoCodeAlone/foreman/comms"
	"github.com/GoCodeAlone/foreman/config"
	"github.com/GoCodeAlone/foreman/costs"
	"github.com/GoCodeAlone/foreman/hr"
	"github.com/GoCodeAlone/foreman/internal/version"
	"github.com/GoCodeAlone/foreman/prompts"
	"github.com/GoCodeAlone/foreman/server"
	"github.com/GoCodeAlone/foreman/server/api"
	"github.com/GoCodeAlone/foreman/server/ws"
	"github.com/GoCodeAlone/foreman/storage"
	"github.com/GoCodeAlone/foreman/task"
	"github.com/GoCodeAlone/foreman/webhook"
)

var configPath = flag.String("config", "foreman.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	usingDefaults := errors.Is(err, fs.ErrNotExist)
	if usingDefaults {
		cfg = config.DefaultConfig()
	} else if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("starting foremand",
		"version", version.Version,
		"commit", version.Commit,
	)
	if usingDefaults {
		logger.Info("config file not found, using defaults", "path", *configPath)
	}

	dbPath := cfg.DatabasePath()
	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", dbPath, err)
	}
	defer db.Close() //nolint:errcheck

	tasks, err := task.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init task store: %v", err)
	}
	agents, err := agent.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init agent store: %v", err)
	}
	hiring, err := hr.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init hr store: %v", err)
	}
	boards, err := board.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init board store: %v", err)
	}
	ledger, err := costs.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init cost store: %v", err)
	}
	trail, err := audit.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init audit store: %v", err)
	}
	library, err := prompts.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init prompt store: %v", err)
	}
	hooks, err := webhook.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("Failed to init webhook store: %v", err)
	}

	bus := comms.NewInMemoryBus()
	hub := ws.NewHub(logger)
	hub.Attach(bus)
	dispatcher := webhook.NewDispatcher(hooks, cfg.Webhooks.Timeout(), logger)
	dispatcher.Attach(bus)

	handlers := &api.Handlers{
		Tasks:      tasks,
		Agents:     agents,
		HR:         hiring,
		Boards:     boards,
		Costs:      ledger,
		Audit:      trail,
		Prompts:    library,
		Webhooks:   hooks,
		Dispatcher: dispatcher,
		Bus:        bus,
		Hub:        hub,
		Logger:     logger,
		Version:    version.Version,
		StartAt:    time.Now(),
	}

	srv := server.New(*cfg, handlers, hub, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
