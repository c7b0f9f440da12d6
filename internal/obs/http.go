package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// InstrumentHTTP wraps a mux with tracing, metrics and an access log.
// Route labels use the matched ServeMux pattern to keep cardinality bounded.
func InstrumentHTTP(service string, mux *http.ServeMux, log *zap.Logger) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		mux.ServeHTTP(rec, r)

		route := routeOf(mux, r)
		elapsed := time.Since(start)
		httpRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
		WithTrace(r.Context(), log).Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.code),
			zap.Duration("elapsed", elapsed),
		)
	})
	return otelhttp.NewHandler(inner, service,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return routeOf(mux, r)
		}),
	)
}

func routeOf(mux *http.ServeMux, r *http.Request) string {
	if _, pattern := mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}
