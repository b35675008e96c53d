package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a filter evaluation.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Metrics is the set of measurements taken by the driver.
type Metrics interface {
	// MeasureEvaluation records the duration of the evaluation of the
	// named filter, since start.
	MeasureEvaluation(name string, start time.Time, outcome string)

	// IncRejection counts a rejection of the given kind.
	IncRejection(kind string)

	// MeasureResponse records the duration of serving a request, since
	// start.
	MeasureResponse(code int, method string, start time.Time)

	// RegisterHandler registers the handler exposing the metrics, if
	// any, at path.
	RegisterHandler(path string, mux *http.ServeMux)
}

// Options for initializing metrics collection.
type Options struct {
	// Common prefix of the metric names, "sieve" when not set.
	Prefix string

	// Buckets of the duration histograms, prometheus.DefBuckets when
	// not set.
	HistogramBuckets []float64

	// If set, Go runtime and process metrics are collected in addition
	// to the evaluation metrics.
	EnableRuntimeMetrics bool

	// Registry to register the collectors with. A new registry is used
	// when not set.
	PrometheusRegistry *prometheus.Registry
}

type void struct{}

// Void is a Metrics implementation discarding all measurements.
var Void Metrics = void{}

func (void) MeasureEvaluation(string, time.Time, string) {}

func (void) IncRejection(string) {}

func (void) MeasureResponse(int, string, time.Time) {}

func (void) RegisterHandler(string, *http.ServeMux) {}

func measuredMethod(m string) string {
	switch m {
	case "OPTIONS",
		"GET",
		"HEAD",
		"POST",
		"PUT",
		"PATCH",
		"DELETE",
		"TRACE",
		"CONNECT":
		return m
	default:
		return "_unknownmethod_"
	}
}
