// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "artgram"

var (
	// likeToggles counts like toggles by outcome.
	// Labels: result (liked, unliked, error)
	likeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "likes",
		Name:      "toggles_total",
		Help:      "Like toggles by outcome",
	}, []string{"result"})

	likeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "likes",
		Name:      "toggle_retries_total",
		Help:      "Like toggles retried after losing a race on the same edge",
	})

	// feedLookups counts feed reads by cache outcome.
	// Labels: result (hit, miss, fallback, disabled)
	feedLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "lookups_total",
		Help:      "Feed page reads by cache outcome",
	}, []string{"result"})

	feedWindowSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "cache_window_size",
		Help:      "Posts held in the cached feed window after the last warm",
	})

	// workerEvents counts processed activity events.
	// Labels: type, result (ok, error)
	workerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "events_total",
		Help:      "Activity events processed by the cleanup workers",
	}, []string{"type", "result"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
)

func RecordLikeToggle(result string) {
	likeToggles.WithLabelValues(result).Inc()
}

func RecordLikeRetry() {
	likeRetries.Inc()
}

func RecordFeedLookup(result string) {
	feedLookups.WithLabelValues(result).Inc()
}

func SetFeedWindowSize(size int64) {
	feedWindowSize.Set(float64(size))
}

func RecordWorkerEvent(eventType, result string) {
	workerEvents.WithLabelValues(eventType, result).Inc()
}

// Middleware records request count and latency labelled by the chi route
// pattern, so /posts/1 and /posts/2 share a series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		httpRequests.WithLabelValues(labels...).Inc()
		httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
