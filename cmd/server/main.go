package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/playerinfo-proxy/internal/api"
	"github.com/mcoot/playerinfo-proxy/internal/config"
	"github.com/mcoot/playerinfo-proxy/internal/factory"
)

func main() {
	// Load configuration; a broken file or environment falls back to defaults
	cfg, cfgErr := config.Load()

	// Set up logging with JSON output
	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if cfgErr != nil {
		logger.Error("using default configuration", slog.String("error", cfgErr.Error()))
	}

	// Create application factory
	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close error", slog.String("error", err.Error()))
		}
	}()

	server := api.NewServer(app.Handler(), cfg.HTTP.Server, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error {
		reloadOnHangup(ctx, app, level, logger)
		return nil
	})

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("transport", cfg.Transport.Type),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// reloadOnHangup re-reads the configuration and passwd.yml on SIGHUP
func reloadOnHangup(ctx context.Context, app *factory.App, level *slog.LevelVar, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load()
			if err != nil {
				logger.Error("config reload failed, keeping current settings", slog.String("error", err.Error()))
				// passwd.yml may still have changed
				_ = app.ReloadCredentials()
				continue
			}
			level.Set(cfg.SlogLevel())
			if err := app.Reload(cfg); err != nil {
				logger.Error("reload incomplete", slog.String("error", err.Error()))
			}
		}
	}
}
