package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/recode/internal/batch"
)

// BatchDecodeRequest carries several matrices inline.
type BatchDecodeRequest struct {
	Lines  []LineRequest `json:"lines"`
	Format string        `json:"format,omitempty"`
}

// BatchDecodeResponse is the JSON answer to a batch request. Results keep
// the order of the request.
type BatchDecodeResponse struct {
	Success bool               `json:"success"`
	Results []batch.FileResult `json:"results"`
	Summary BatchSummary       `json:"summary"`
	Error   string             `json:"error,omitempty"`
}

// BatchSummary provides summary statistics for one batch request.
type BatchSummary struct {
	Total         int     `json:"total"`
	Decoded       int     `json:"decoded"`
	Rejected      int     `json:"rejected"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgLineTime   float64 `json:"avg_line_time_seconds"`
}

// batchConcurrency bounds the lines of one request decoded at once.
const batchConcurrency = 4

// decodeBatchHandler decodes every line of a batch request.
func (s *Server) decodeBatchHandler(w http.ResponseWriter, r *http.Request) {
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

	var req BatchDecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "Batch too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		s.writeErrorResponse(w, "No lines provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Lines) > s.maxBatchSize {
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d lines)", s.maxBatchSize), http.StatusBadRequest)
		return
	}
	if req.Format != "" && !batch.IsValidFormat(req.Format) {
		s.writeErrorResponse(w, "Unsupported format: "+req.Format, http.StatusBadRequest)
		return
	}

	start := time.Now()
	results := s.decodeBatchLines(r, req.Lines)
	elapsed := time.Since(start)

	res := &batch.Result{Files: results, Duration: elapsed, WorkerCount: min(batchConcurrency, len(results))}
	stats := res.Stats()
	summary := BatchSummary{
		Total:         stats.Total,
		Decoded:       stats.Decoded,
		Rejected:      stats.Rejected,
		Failed:        stats.Failed,
		TotalDuration: elapsed.Seconds(),
		AvgLineTime:   stats.AvgPerFile.Seconds(),
	}
	slog.Debug("Batch decoded", "lines", summary.Total, "failed", summary.Failed, "duration", elapsed)

	if req.Format == "" || req.Format == batch.FormatJSON {
		s.writeJSON(w, http.StatusOK, BatchDecodeResponse{
			Success: summary.Failed == 0,
			Results: results,
			Summary: summary,
		})
		return
	}
	out, err := res.FormatResults(req.Format, 3)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(req.Format))
	_, _ = w.Write([]byte(out))
}

// decodeBatchLines decodes lines concurrently. A line that cannot be built
// or decoded carries its error in the result instead of failing the batch.
func (s *Server) decodeBatchLines(r *http.Request, lines []LineRequest) []batch.FileResult {
	results := make([]batch.FileResult, len(lines))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i, line := range lines {
		name := line.Name
		if name == "" {
			name = fmt.Sprintf("line-%d", i)
		}
		results[i].File = name

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			defer func() {
				results[i].DurationMs = float64(time.Since(start).Microseconds()) / 1000
			}()

			m, err := matrixFromLine(line)
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			res, err := s.decodeLine(r.Context(), m, transportBatch)
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Line = res
		}()
	}
	wg.Wait()
	return results
}
