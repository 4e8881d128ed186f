package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/config"
	"github.com/MeKo-Tech/recode/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the decoding API",
		Long: `Start an HTTP server that decodes network output matrices.

The server provides the following endpoints:
  POST /decode       - Decode one matrix (JSON, or text/plain rows)
  POST /decode/batch - Decode several inline matrices
  GET  /ws/decode    - WebSocket streaming decode
  GET  /health       - Health check endpoint
  GET  /models       - Loaded model and bundle assets
  GET  /metrics      - Prometheus metrics

Examples:
  recode serve
  recode serve --port 8080
  recode serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.commandConfig(cmd)
			if err != nil {
				return err
			}
			applyServerFlags(cmd, cfg)
			if port := cfg.Server.Port; port < 1 || port > 65535 {
				return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := server.NewServer(serverConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			mux := http.NewServeMux()
			srv.SetupRoutes(mux)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return runHTTPServer(ctx, cfg.Server, mux)
		},
	}

	addDecoderFlags(cmd)
	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Bool("rate-limit-enabled", false, "enable rate limiting")
	f.Int("requests-per-minute", 600, "maximum requests per minute per client")
	f.Int("requests-per-hour", 10000, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 100000, "maximum requests per day per client")
	f.Int("max-data-per-day", 1024, "maximum data uploaded per day per client (MB)")
	return cmd
}

// applyServerFlags copies changed server flags over cfg.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	s := &cfg.Server
	if f.Changed("host") {
		s.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		s.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		s.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		s.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		s.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("rate-limit-enabled") {
		s.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		s.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		s.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		s.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		s.RateLimit.MaxDataPerDayMB, _ = f.GetInt("max-data-per-day")
	}
}

// serverConfig maps the configuration to server.Config.
func serverConfig(cfg *config.Config) server.Config {
	s := cfg.Server
	return server.Config{
		Host:         s.Host,
		Port:         s.Port,
		CORSOrigin:   s.CORSOrigin,
		MaxUploadMB:  int64(s.MaxUploadMB),
		TimeoutSec:   s.TimeoutSec,
		Bundle:       cfg.Bundle(),
		ModelOptions: cfg.ToModelOptions(),
		Recognizer:   cfg.ToRecognizerConfig(),
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimit.Enabled,
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			RequestsPerHour:   s.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: s.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     int64(s.RateLimit.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

// runHTTPServer serves handler until ctx is done, then shuts down within
// the configured timeout.
func runHTTPServer(ctx context.Context, s config.ServerConfig, handler http.Handler) error {
	timeout := time.Duration(s.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting decode server", "host", s.Host, "port", s.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", s.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
