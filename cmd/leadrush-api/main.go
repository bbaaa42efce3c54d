package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrush/internal/api"
	"leadrush/internal/config"
	"leadrush/internal/db"
	"leadrush/internal/game"
	"leadrush/internal/metrics"
	"leadrush/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var kv game.KV
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		kv = store.NewPostgresStore(pool)
		logger.Info("using postgres save store")
	} else {
		fs, err := store.NewFileStore(cfg.SaveDir)
		if err != nil {
			logger.Error("save dir init failed", "dir", cfg.SaveDir, "err", err)
			os.Exit(1)
		}
		kv = fs
		logger.Info("using file save store", "dir", fs.Dir)
	}

	g := game.NewGame(game.DefaultCatalog(), logger,
		game.WithTickInterval(cfg.TickEvery),
		game.WithSpawnChance(cfg.SpawnChance),
	)
	res, err := g.Load(ctx, kv)
	if err != nil {
		logger.Error("load save failed", "err", err)
		os.Exit(1)
	}
	logger.Info("save loaded", "found", res.Found, "corrupt", res.Corrupt, "dropped_ids", len(res.DroppedIDs))

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		err := g.Run(ctx, game.Drivers{
			SpawnEvery:    cfg.SpawnEvery,
			AutosaveEvery: cfg.AutosaveEvery,
			Store:         kv,
			OnTick:        metrics.ObserveTick,
			OnSpawn:       metrics.ObserveSpawn,
			OnSave:        metrics.ObserveSave,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("game loop failed", "err", err)
		}
	}()

	server := api.New(cfg, logger, g, kv)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("leadrush api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		stop()
		<-loopDone
		os.Exit(1)
	}
	// The loop writes a final save once the context is cancelled.
	<-loopDone
}
