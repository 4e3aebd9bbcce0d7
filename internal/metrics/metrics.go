// Package metrics exposes generation counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxelmaze"

type Metrics struct {
	Registry *prometheus.Registry

	runs       *prometheus.CounterVec
	commands   prometheus.Counter
	ladders    prometheus.Counter
	fallbacks  prometheus.Counter
	errors     *prometheus.CounterVec
	genSeconds prometheus.Histogram

	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs completed, by maze mode.",
		}, []string{"mode"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands emitted across all runs.",
		}),
		ladders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ladders_total",
			Help:      "Vertical connections given a ladder.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ladder_fallbacks_total",
			Help:      "Ladders hung on a fabricated support pillar.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Rejected or failed generation requests, by error code.",
		}, []string{"code"}),
		genSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Wall time of one generation run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests being served.",
		}),
	}
	m.Registry.MustRegister(m.runs, m.commands, m.ladders, m.fallbacks, m.errors, m.genSeconds, m.reqDuration, m.reqInflight)
	return m
}

// ObserveRun records one finished run. Safe on a nil receiver.
func (m *Metrics) ObserveRun(mode string, commands, ladders, fallbacks int, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode).Inc()
	m.commands.Add(float64(commands))
	m.ladders.Add(float64(ladders))
	m.fallbacks.Add(float64(fallbacks))
	m.genSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveError(code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Instrument wraps next with latency and in-flight tracking. path is the
// route label, not the raw URL, to keep cardinality bounded.
func (m *Metrics) Instrument(path string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.reqInflight.Inc()
		defer m.reqInflight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.reqDuration.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
