package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"whatsapp-gateway/internal/config"
	"whatsapp-gateway/internal/logging"
	"whatsapp-gateway/internal/server"
)

func main() {
	// Load config (.env optional)
	cfg := config.Load()

	logger, err := logging.New(cfg.Development(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Start server (HTTP + gRPC + whatsapp session inside)
	srv, cleanup := server.NewServer(cfg, logger)
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("WhatsApp gateway HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("WhatsApp gateway shutting down gracefully...")
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("WhatsApp gateway failed", zap.Error(err))
		}
	}
}
