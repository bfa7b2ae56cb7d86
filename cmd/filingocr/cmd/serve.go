package cmd

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

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/filingocr/internal/app"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the extraction API",
	Long: `Start an HTTP server that exposes the extraction pipeline.

The server provides the following endpoints:
  POST /v1/extract - Extract text from an uploaded document
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Examples:
  filingocr serve
  filingocr serve --port 8080
  filingocr serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// applyServeFlags folds the serve flags into cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	s := &cfg.Server
	setStringWithFlag(cmd, "host", &s.Host)
	setIntWithFlag(cmd, "port", &s.Port)
	setStringWithFlag(cmd, "cors-origin", &s.CORSOrigin)
	setIntWithFlag(cmd, "max-upload-size", &s.MaxUploadMB)
	setIntWithFlag(cmd, "timeout", &s.TimeoutSec)
	setIntWithFlag(cmd, "shutdown-timeout", &s.ShutdownTimeout)

	rl := &s.RateLimit
	setBoolWithFlag(cmd, "rate-limit-enabled", &rl.Enabled)
	setIntWithFlag(cmd, "requests-per-minute", &rl.RequestsPerMinute)
	setIntWithFlag(cmd, "requests-per-hour", &rl.RequestsPerHour)
	setIntWithFlag(cmd, "max-requests-per-day", &rl.MaxRequestsPerDay)
	if cmd.Flags().Changed("max-data-per-day") {
		rl.MaxDataPerDay, _ = cmd.Flags().GetInt64("max-data-per-day")
	}
}

// newHTTPServer wires the extraction API around an assembled app.
func newHTTPServer(cfg *config.Config, a *app.App) *http.Server {
	api := server.NewServer(a.Pipeline, cfg.ToServerConfig(), server.WithStrategies(a.Strategies()...))
	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		// Leave room to write the response after a full extraction.
		WriteTimeout: timeout + 5*time.Second,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	applyServeFlags(cmd, cfg)

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer func() { _ = a.Close() }()

	httpServer := newHTTPServer(cfg, a)

	go func() {
		slog.Info("Starting extraction server",
			"addr", httpServer.Addr,
			"strategies", a.Strategies(),
			"rate_limit", cfg.Server.RateLimit.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := a.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 300, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum data processed per day per client (bytes)")
}
