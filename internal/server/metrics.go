// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed /api/chat requests, partitioned by
	// outcome: "ok" or "error".
	chatRequestsTotal *prometheus.CounterVec

	// chatDuration records the wall-clock duration of each successful
	// /api/chat request from first byte received to stream completion.
	chatDuration prometheus.Histogram

	// chatActiveStreams is the number of /api/chat SSE streams currently open.
	chatActiveStreams prometheus.Gauge

	// searchFallbackTotal counts retrievals that fell back to recency order
	// because the similarity index was unavailable or empty.
	searchFallbackTotal prometheus.Counter

	// reindexDocumentsTotal counts documents processed by reindex sweeps,
	// partitioned by result: "indexed" or "failed".
	reindexDocumentsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxi",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /api/chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxi",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/chat requests from receipt to stream completion.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		chatActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxi",
			Subsystem: "chat",
			Name:      "active_streams",
			Help:      "Number of /api/chat SSE streams currently open.",
		}),

		searchFallbackTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "voxi",
			Subsystem: "search",
			Name:      "fallback_total",
			Help:      "Total number of retrievals served by the recency fallback instead of the similarity index.",
		}),

		reindexDocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxi",
			Subsystem: "reindex",
			Name:      "documents_total",
			Help:      "Total number of documents processed by reindex sweeps, partitioned by result.",
		}, []string{"result"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxi",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// httpMiddleware records request counts and latency for every request that
// reaches the server. Document IDs are stripped from the handler label so the
// cardinality stays bounded by the route table.
func (m *serverMetrics) httpMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		handler := handlerLabel(r.URL.Path)
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(elapsed.Seconds())
	})
}

// handlerLabel collapses parameterized document paths to their route pattern.
func handlerLabel(path string) string {
	if strings.HasPrefix(path, "/api/documents/") {
		return "/api/documents/{id}"
	}
	return path
}
