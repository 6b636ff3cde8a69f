package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// Handler metrics
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ec2automations",
			Subsystem: "handler",
			Name:      "invocations_total",
			Help:      "Total number of handler invocations by outcome",
		},
		[]string{"handler", "outcome"},
	)

	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ec2automations",
			Subsystem: "handler",
			Name:      "duration_seconds",
			Help:      "Handler invocation duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"handler"},
	)

	targetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ec2automations",
			Subsystem: "handler",
			Name:      "targets_total",
			Help:      "Resources acted on by handlers, by result",
		},
		[]string{"handler", "result"},
	)

	// HTTP metrics for the local invoke server
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ec2automations",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ec2automations",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// RecordInvocation records one handler run
func RecordInvocation(handler, outcome string, duration time.Duration) {
	invocationsTotal.WithLabelValues(handler, outcome).Inc()
	invocationDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordTargets records how many resources a handler attempted, and how
// many of those succeeded or failed.
func RecordTargets(handler string, attempted, succeeded, failed int) {
	if attempted > 0 {
		targetsTotal.WithLabelValues(handler, "attempted").Add(float64(attempted))
	}
	if succeeded > 0 {
		targetsTotal.WithLabelValues(handler, "succeeded").Add(float64(succeeded))
	}
	if failed > 0 {
		targetsTotal.WithLabelValues(handler, "failed").Add(float64(failed))
	}
}

// Push sends the default registry to a Prometheus Pushgateway. Lambda
// environments have no scrape target, so this is how their counters leave
// the process. Each concurrent container must pass its own grouping labels
// or the gateway keeps only the last push. Empty values are skipped.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(prometheus.DefaultGatherer)
	for name, value := range grouping {
		if value != "" {
			p = p.Grouping(name, value)
		}
	}
	return p.PushContext(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
