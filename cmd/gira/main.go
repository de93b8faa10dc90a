package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gira/internal/auth"
	"gira/internal/server"
	"gira/internal/storage/sqlite"
	"gira/internal/tracker"
	"gira/internal/util"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("GIRA_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("GIRA_DB_PATH", "data/gira.db"), "Path to sqlite database file")
	secretFlag := flag.String("secret", util.EnvOrDefault("GIRA_SECRET", ""), "JWT signing secret")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *secretFlag == "" {
		logger.Error("missing JWT signing secret, set GIRA_SECRET or -secret")
		os.Exit(1)
	}

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	authority := auth.New(store, *secretFlag)
	svc := tracker.New(store, logger)
	srv := server.New(authority, svc, logger)

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
