package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/sieve/metrics"
)

func scrape(t *testing.T, m metrics.Metrics) string {
	t.Helper()

	mux := http.NewServeMux()
	m.RegisterHandler("/metrics", mux)

	rsp := httptest.NewRecorder()
	mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rsp.Code)

	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPrometheusMetrics(t *testing.T) {
	for _, tt := range []struct {
		name       string
		opts       metrics.Options
		addMetrics func(*metrics.Prometheus)
		expMetrics []string
	}{{
		name: "rejections are counted by kind",
		addMetrics: func(pm *metrics.Prometheus) {
			pm.IncRejection("NotFound")
			pm.IncRejection("Forbidden")
			pm.IncRejection("NotFound")
		},
		expMetrics: []string{
			`sieve_filter_rejection_total{kind="NotFound"} 2`,
			`sieve_filter_rejection_total{kind="Forbidden"} 1`,
		},
	}, {
		name: "evaluations are measured by filter and outcome",
		opts: metrics.Options{HistogramBuckets: []float64{0.005, 0.01, 0.025}},
		addMetrics: func(pm *metrics.Prometheus) {
			pm.MeasureEvaluation("api", time.Now().Add(-15*time.Millisecond), metrics.OutcomeSuccess)
			pm.MeasureEvaluation("api", time.Now().Add(-3*time.Millisecond), metrics.OutcomeSuccess)
			pm.MeasureEvaluation("api", time.Now(), metrics.OutcomeRejected)
		},
		expMetrics: []string{
			`sieve_filter_evaluation_duration_seconds_bucket{filter="api",outcome="success",le="0.005"} 1`,
			`sieve_filter_evaluation_duration_seconds_bucket{filter="api",outcome="success",le="0.025"} 2`,
			`sieve_filter_evaluation_duration_seconds_count{filter="api",outcome="success"} 2`,
			`sieve_filter_evaluation_duration_seconds_count{filter="api",outcome="rejected"} 1`,
		},
	}, {
		name: "responses are measured by code and method",
		addMetrics: func(pm *metrics.Prometheus) {
			pm.MeasureResponse(200, "GET", time.Now())
			pm.MeasureResponse(403, "FOO", time.Now())
		},
		expMetrics: []string{
			`sieve_response_duration_seconds_count{code="200",method="GET"} 1`,
			`sieve_response_duration_seconds_count{code="403",method="_unknownmethod_"} 1`,
		},
	}, {
		name: "the prefix replaces the namespace",
		opts: metrics.Options{Prefix: "gateway."},
		addMetrics: func(pm *metrics.Prometheus) {
			pm.IncRejection("Custom")
		},
		expMetrics: []string{
			`gateway_filter_rejection_total{kind="Custom"} 1`,
		},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			pm := metrics.NewPrometheus(tt.opts)
			tt.addMetrics(pm)

			body := scrape(t, pm)
			for _, expMetric := range tt.expMetrics {
				assert.Contains(t, body, expMetric)
			}
		})
	}
}

func TestPrometheusCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := metrics.NewPrometheus(metrics.Options{PrometheusRegistry: reg})

	pm.IncRejection("MissingHeader")
	pm.MeasureEvaluation("chain", time.Now(), metrics.OutcomeCancelled)

	n, err := testutil.GatherAndCount(reg, "sieve_filter_rejection_total", "sieve_filter_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP sieve_filter_rejection_total Total number of rejected requests.
# TYPE sieve_filter_rejection_total counter
sieve_filter_rejection_total{kind="MissingHeader"} 1
`), "sieve_filter_rejection_total")
	assert.NoError(t, err)
}

func TestPrometheusHistogramBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := metrics.NewPrometheus(metrics.Options{
		PrometheusRegistry: reg,
		HistogramBuckets:   []float64{0.1, 1},
	})

	pm.MeasureEvaluation("chain", time.Now(), metrics.OutcomeSuccess)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var evaluation *dto.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "sieve_filter_evaluation_duration_seconds" {
			evaluation = mf
		}
	}

	require.NotNil(t, evaluation)
	assert.Equal(t, dto.MetricType_HISTOGRAM, evaluation.GetType())
	require.Len(t, evaluation.GetMetric(), 1)

	buckets := evaluation.GetMetric()[0].GetHistogram().GetBucket()
	require.Len(t, buckets, 2)
	assert.Equal(t, 0.1, buckets[0].GetUpperBound())
	assert.Equal(t, uint64(1), buckets[0].GetCumulativeCount())
	assert.Equal(t, 1.0, buckets[1].GetUpperBound())
}

func TestPrometheusRuntimeMetrics(t *testing.T) {
	pm := metrics.NewPrometheus(metrics.Options{EnableRuntimeMetrics: true})
	assert.Contains(t, scrape(t, pm), "go_goroutines")
}

func TestVoid(t *testing.T) {
	metrics.Void.MeasureEvaluation("chain", time.Now(), metrics.OutcomeSuccess)
	metrics.Void.IncRejection("NotFound")
	metrics.Void.MeasureResponse(200, "GET", time.Now())

	mux := http.NewServeMux()
	metrics.Void.RegisterHandler("/metrics", mux)

	rsp := httptest.NewRecorder()
	mux.ServeHTTP(rsp, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rsp.Code)
}
