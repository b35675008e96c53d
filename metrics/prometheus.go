package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace         = "sieve"
	promFilterSubsystem   = "filter"
	promResponseSubsystem = "response"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	evaluationM *prometheus.HistogramVec
	rejectionM  *prometheus.CounterVec
	responseM   *prometheus.HistogramVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	if len(opts.HistogramBuckets) == 0 {
		opts.HistogramBuckets = prometheus.DefBuckets
	}

	evaluation := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promFilterSubsystem,
		Name:      "evaluation_duration_seconds",
		Help:      "Duration in seconds of a filter evaluation.",
		Buckets:   opts.HistogramBuckets,
	}, []string{"filter", "outcome"})

	rejection := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promFilterSubsystem,
		Name:      "rejection_total",
		Help:      "Total number of rejected requests.",
	}, []string{"kind"})

	response := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promResponseSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of a response.",
		Buckets:   opts.HistogramBuckets,
	}, []string{"code", "method"})

	p := &Prometheus{
		evaluationM: evaluation,
		rejectionM:  rejection,
		responseM:   response,

		registry: opts.PrometheusRegistry,
		opts:     opts,
	}

	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	p.registerMetrics()
	return p
}

// sinceS returns the seconds passed since the start time until now.
func (p *Prometheus) sinceS(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.evaluationM)
	p.registry.MustRegister(p.rejectionM)
	p.registry.MustRegister(p.responseM)

	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

// CreateHandler returns a handler serving the collected metrics.
func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureEvaluation satisfies Metrics interface.
func (p *Prometheus) MeasureEvaluation(name string, start time.Time, outcome string) {
	t := p.sinceS(start)
	p.evaluationM.WithLabelValues(name, outcome).Observe(t)
}

// IncRejection satisfies Metrics interface.
func (p *Prometheus) IncRejection(kind string) {
	p.rejectionM.WithLabelValues(kind).Inc()
}

// MeasureResponse satisfies Metrics interface.
func (p *Prometheus) MeasureResponse(code int, method string, start time.Time) {
	t := p.sinceS(start)
	p.responseM.WithLabelValues(strconv.Itoa(code), measuredMethod(method)).Observe(t)
}
