package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"brigade/internal/config"
	"brigade/internal/db"
	applog "brigade/internal/log"
	"brigade/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		applog.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}
	applog.SetLevel(cfg.LogLevel)

	database, err := db.Configure(cfg.Database)
	if err != nil {
		applog.Error(ctx, "database initialization failed", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		Database: database,
	})
	if err != nil {
		applog.Error(ctx, "server initialization failed", "error", err)
		os.Exit(1)
	}

	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	applog.Info(ctx, "shutting down http server")
	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
