package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	dispatchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_attempts_total",
			Help: "Outbound provider send attempts by outcome.",
		},
		[]string{"outcome"},
	)

	circuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_circuit_breaker_state",
		Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open.",
	})

	messagesIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailbox_messages_ingested_total",
		Help: "Inbound messages accepted into mailboxes.",
	})
)

// Init registers all service metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		dispatchAttemptsTotal,
		circuitBreakerState,
		messagesIngestedTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDispatch counts one provider send attempt outcome
// ("success", "retryable", "fatal", "circuit_open").
func ObserveDispatch(outcome string) {
	dispatchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// SetCircuitState records the breaker state after a dispatch call.
func SetCircuitState(state int) {
	circuitBreakerState.Set(float64(state))
}

// MessageIngested counts one accepted inbound message.
func MessageIngested() {
	messagesIngestedTotal.Inc()
}

// Instrument wraps a handler with request count/latency/in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE responses keep streaming
// through the instrumented chain.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
