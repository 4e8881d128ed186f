// Package server exposes line decoding over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// lineRecognizer is what the handlers need from a recognizer.
type lineRecognizer interface {
	RecognizeLine(ctx context.Context, m *netio.Matrix) (*recognizer.LineResult, error)
	Model() *recognizer.Model
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	recognizer   lineRecognizer
	bundle       models.Bundle
	corsOrigin   string
	maxUploadMB  int64
	timeoutSec   int
	maxBatchSize int
	rateLimiter  *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	TimeoutSec   int
	MaxBatchSize int
	Bundle       models.Bundle
	ModelOptions recognizer.ModelOptions
	Recognizer   recognizer.Config
	RateLimit    RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// DefaultMaxBatchSize caps the lines in one batch request.
const DefaultMaxBatchSize = 64

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ModelsResponse is returned by /models.
type ModelsResponse struct {
	Model  *recognizer.ModelInfo `json:"model,omitempty"`
	Assets []models.AssetInfo    `json:"assets"`
	Count  int                   `json:"count"`
}

// LineRequest carries one matrix inline, in the same shape as a matrix
// JSON file.
type LineRequest struct {
	Name    string      `json:"name,omitempty"`
	Classes int         `json:"classes,omitempty"`
	Outputs [][]float32 `json:"outputs"`
}

// DecodeResponse wraps a decoded line.
type DecodeResponse struct {
	Success bool                   `json:"success"`
	Result  *recognizer.LineResult `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// NewServer loads the model bundle and builds the server around it.
func NewServer(config Config) (*Server, error) {
	model, err := recognizer.LoadModel(config.Bundle, config.ModelOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	rec, err := recognizer.NewRecognizer(model, config.Recognizer)
	if err != nil {
		return nil, err
	}
	return newServer(rec, config), nil
}

func newServer(rec lineRecognizer, config Config) *Server {
	s := &Server{
		recognizer:   rec,
		bundle:       config.Bundle,
		corsOrigin:   config.CORSOrigin,
		maxUploadMB:  config.MaxUploadMB,
		timeoutSec:   config.TimeoutSec,
		maxBatchSize: config.MaxBatchSize,
	}
	if s.maxBatchSize <= 0 {
		s.maxBatchSize = DefaultMaxBatchSize
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// RateLimiter returns the server's limiter, or nil when disabled.
func (s *Server) RateLimiter() *RateLimiter { return s.rateLimiter }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/models", s.corsMiddleware(s.modelsHandler))
	mux.HandleFunc("/decode", s.corsMiddleware(s.rateLimitMiddleware(s.decodeHandler)))
	mux.HandleFunc("/decode/batch", s.corsMiddleware(s.rateLimitMiddleware(s.decodeBatchHandler)))
	mux.HandleFunc("/ws/decode", s.rateLimitMiddleware(s.decodeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
