package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/recode/internal/batch"
	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ver, _, _ := version.Info()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ver,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// modelsHandler describes the loaded model and the bundle assets.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assets := s.bundle.Assets()
	if s.bundle.Dir == "" {
		assets = models.ListAssets()
	}
	response := ModelsResponse{Assets: assets, Count: len(assets)}
	if s.recognizer != nil {
		info := s.recognizer.Model().Info()
		response.Model = &info
	}
	s.writeJSON(w, http.StatusOK, response)
}

// decodeHandler decodes one matrix posted as JSON, or as whitespace
// separated text when the content type is text/plain.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recognizer == nil {
		s.writeErrorResponse(w, "Recognizer not initialized", http.StatusServiceUnavailable)
		return
	}

	if limit := s.maxUploadMB * 1024 * 1024; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}

	var (
		m   *netio.Matrix
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		m, err = netio.ReadText(r.Body)
	} else {
		m, err = netio.ReadJSON(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "Matrix too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Invalid matrix: %v", err), http.StatusBadRequest)
		return
	}

	res, err := s.decodeLine(r.Context(), m, transportHTTP)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	status := http.StatusOK
	if res.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	if format == "" || format == batch.FormatJSON {
		s.writeJSON(w, status, DecodeResponse{Success: res.Error == "", Result: res, Error: res.Error})
		return
	}
	out, err := batch.FormatLine(res, format, 3)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

// decodeLine runs the recognizer under the request timeout and records
// decode metrics. It releases m.
func (s *Server) decodeLine(ctx context.Context, m *netio.Matrix, transport string) (*recognizer.LineResult, error) {
	defer m.Release()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	decodeTimesteps.WithLabelValues(transport).Observe(float64(m.Width()))
	start := time.Now()
	res, err := s.recognizer.RecognizeLine(ctx, m)
	decodeDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())
	if err != nil {
		decodeRequestsTotal.WithLabelValues(transport, "error").Inc()
		return nil, err
	}

	status := "success"
	if res.Error != "" {
		status = "failed"
	}
	decodeRequestsTotal.WithLabelValues(transport, status).Inc()
	decodeTextLength.WithLabelValues(transport).Observe(float64(utf8.RuneCountInString(res.Text)))
	return res, nil
}

// matrixFromLine builds a normalized matrix from an inline request.
func matrixFromLine(req LineRequest) (*netio.Matrix, error) {
	if req.Classes > 0 && len(req.Outputs) > 0 && len(req.Outputs[0]) != req.Classes {
		return nil, fmt.Errorf("%w: declared %d classes, got %d", netio.ErrRaggedMatrix, req.Classes, len(req.Outputs[0]))
	}
	m, err := netio.FromRows(req.Outputs)
	if err != nil {
		return nil, err
	}
	m.Normalize()
	return m, nil
}

func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, "Decode timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		s.writeErrorResponse(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		s.writeErrorResponse(w, fmt.Sprintf("Decode failed: %v", err), http.StatusInternalServerError)
	}
}

func contentTypeFor(format string) string {
	switch format {
	case batch.FormatYAML:
		return "application/yaml"
	case batch.FormatCSV:
		return "text/csv"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, DecodeResponse{Success: false, Error: message})
}
