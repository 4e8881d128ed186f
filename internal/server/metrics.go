package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transport labels for decode metrics.
const (
	transportHTTP      = "http"
	transportBatch     = "batch"
	transportWebSocket = "websocket"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recode_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recode_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	decodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recode_decode_requests_total",
			Help: "Total number of line decode requests",
		},
		[]string{"transport", "status"}, // status: success, failed, error
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recode_decode_duration_seconds",
			Help:    "Line decode duration in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"transport"},
	)

	decodeTextLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recode_decode_text_length",
			Help:    "Length of decoded line text in runes",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"transport"},
	)

	decodeTimesteps = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recode_decode_input_timesteps",
			Help:    "Number of timesteps in submitted matrices",
			Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"transport"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recode_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recode_upload_size_bytes",
			Help:    "Size of submitted matrices in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recode_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recode_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)
