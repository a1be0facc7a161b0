package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lead-intake/cmd/mainconfig"
	"github.com/wolfman30/lead-intake/internal/api/router"
	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

func main() {
	// Load .env file when present
	envLoaded := godotenv.Load() == nil

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting lead-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dotenv", envLoaded,
	)

	reg, metricsHandler := setupMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := mainconfig.BuildRuntime(ctx, cfg, reg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to wire intake service", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      rt.Handler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server. WriteTimeout leaves room for every collaborator stage.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg.CollaboratorTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// writeTimeout covers the attachment, persistence, notification, event and
// confirmation stages plus the notes write, each bounded by stage.
func writeTimeout(stage time.Duration) time.Duration {
	if stage <= 0 {
		return 2 * time.Minute
	}
	return 6*stage + 15*time.Second
}
