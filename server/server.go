package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"field_uploader/attendance"
	"field_uploader/config"
	"field_uploader/kintone"
	"field_uploader/metrics"
	"field_uploader/storage"
	"field_uploader/upload"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func Run() error {
	ctx, cancel := initContext()
	defer cancel()

	cfg, err := config.Get()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel})))

	store, err := storage.Init(cfg.MinIO)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		if !errors.Is(err, storage.ErrMissingCredentials) {
			return err
		}
		slog.Warn("skipping bucket bootstrap", "error", err)
	}

	observer, err := metrics.NewPrometheusObserver("field_uploader", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	records := kintone.NewClient(cfg.Kintone.Domain)
	coordinator := upload.New(cfg, store, storage.NewResolver(store, nil), records, upload.WithObserver(observer))
	clockIn := attendance.NewService(cfg, records, nil)

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	s := NewServer(ctx, coordinator, clockIn, promhttp.Handler(), addr)

	go startHTTPServer(s.HTTPServer, s.HTTPServer.Addr)

	return shutdownServer(s)
}

func initContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func startHTTPServer(server *http.Server, addr string) {
	slog.Info("starting HTTP server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("error starting HTTP server", "error", err)
	}
}

func shutdownServer(s *Server) error {
	server := s.HTTPServer
	shutdownSignals := make(chan os.Signal, 1)
	signal.Notify(shutdownSignals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	select {
	case <-shutdownSignals:
		slog.Info("received shutdown signal")
	case <-s.Ctx.Done():
		slog.Info("server context finished")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)

		if err := server.Close(); err != nil {
			slog.Error("forced shutdown failed", "error", err)
			return err
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
