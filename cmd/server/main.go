// Command server runs the arena/breakout backend as a long-lived process:
// the HTTP API, the websocket watchers and the invitation sweeper.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"arena-breakout-backend/pkg/config"
	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/logging"
	"arena-breakout-backend/pkg/realtime"
	"arena-breakout-backend/pkg/server"
	"arena-breakout-backend/pkg/services"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.UsesDefaultJWTSecret() {
		slog.Warn("JWT_SECRET is not set, using the development default")
	}
	if !cfg.LiveKitConfigured() {
		slog.Warn("LiveKit credentials missing, media tokens will be refused")
	}

	db, err := database.NewDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	broker, err := realtime.NewBroker(ctx, cfg)
	if err != nil {
		slog.Error("failed to start realtime broker", "error", err)
		os.Exit(1)
	}

	app := server.NewApp(cfg, db, broker)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.RunSweeper(gctx, app.Breakout, cfg.SweepInterval)
	})
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"arena-breakout": func(ctx context.Context) error {
			// 先停止接收请求，再停止后台任务，最后释放存储
			err := srv.Shutdown(ctx)
			stop()
			err = errors.Join(err, g.Wait(), broker.Close(), db.Close())
			return err
		},
	})

	exitCode := <-wait
	slog.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
