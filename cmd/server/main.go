package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ranchdesk/internal/platform/config"
	"ranchdesk/internal/platform/httpserver"
	"ranchdesk/internal/platform/logger"
)

// main wires dependencies and runs the HTTP server alongside the contract
// request consumer. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("ranchdesk exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	srv := httpserver.New(cfg.Server.Addr, newRouter(app, log))
	log.Info("starting ranchdesk",
		"addr", cfg.Server.Addr,
		"postgres", app.db != nil,
		"redis_mirror", app.redis != nil,
		"kafka", app.consumer != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return app.runWorker(gctx)
	})
	return g.Wait()
}
