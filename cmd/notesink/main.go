// Command notesink serves the remote note sink.
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

	"go.uber.org/zap"

	"github.com/aretw0/notenest/internal/sink"
)

func main() {
	configPath := flag.String("config", sink.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	if loaded := sink.LoadDotEnv(); len(loaded) > 0 {
		logger.Info("loaded env files", zap.Strings("files", loaded))
	}

	cfg, err := sink.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.IsDev() {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	table, err := sink.OpenTable(ctx, cfg.Table, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to open table", zap.Error(err))
	}
	defer table.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           sink.NewServer(cfg, table, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("table", cfg.Table.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
