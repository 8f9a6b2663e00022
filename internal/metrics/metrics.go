// Package metrics provides Prometheus instrumentation for the pool engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsTotal counts accepted bets, partitioned by side.
	BetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pari_bets_total",
		Help: "Total number of bets accepted",
	}, []string{"side"})

	// BetAmount observes accepted bet sizes in base units.
	BetAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pari_bet_amount",
		Help:    "Accepted bet amounts in base units",
		Buckets: prometheus.ExponentialBuckets(1, 10, 10),
	})

	// ClaimsTotal counts successful payout claims.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pari_claims_total",
		Help: "Total number of payouts claimed",
	})

	// ClaimedAmount observes disbursed payout sizes in base units.
	ClaimedAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pari_claimed_amount",
		Help:    "Disbursed payout amounts in base units",
		Buckets: prometheus.ExponentialBuckets(1, 10, 10),
	})

	// MarketsCreated counts markets ever created.
	MarketsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pari_markets_created_total",
		Help: "Total number of markets created",
	})

	// MarketsResolved counts markets resolved, partitioned by outcome.
	MarketsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pari_markets_resolved_total",
		Help: "Total number of markets resolved",
	}, []string{"outcome"})

	// ReentrancyRejections counts money-path entries rejected by the
	// busy-flag guard.
	ReentrancyRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pari_reentrancy_rejections_total",
		Help: "Operations rejected by the money-path guard",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pari_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pari_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pari_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and
		// bounded enough not to blow up cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
