package driver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	ot "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	log "github.com/sirupsen/logrus"

	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/flowid"
	"github.com/zalando/sieve/logging"
	"github.com/zalando/sieve/metrics"
)

const (
	// DefaultOperationName is the operation name of the evaluation
	// spans, when not configured otherwise.
	DefaultOperationName = "evaluate"

	// StatusClientClosedRequest is logged for requests abandoned by the
	// client.
	StatusClientClosedRequest = 499

	flowIDTag  = "flowid"
	filterTag  = "filter"
	outcomeTag = "outcome"
)

// ReplyFunc writes the response of a request, from the values extracted
// by the filter.
type ReplyFunc func(http.ResponseWriter, *http.Request, filters.Tuple)

// Options configure a Driver.
type Options struct {

	// Filter evaluated for every request. Required.
	Filter filters.Filter

	// Reply writes the response of accepted requests. When not set,
	// DefaultReply is used.
	Reply ReplyFunc

	// ContextOptions configure the request contexts.
	ContextOptions ContextOptions

	// Metrics collects the evaluation metrics. When not set, no
	// metrics are collected.
	Metrics metrics.Metrics

	// Tracer creates the evaluation spans. When not set, the global
	// tracer is used.
	Tracer ot.Tracer

	// OperationName of the evaluation spans.
	OperationName string

	// AccessLogDisabled disables the access log of the driver.
	AccessLogDisabled bool
}

// Driver is an http.Handler evaluating a filter for every request.
type Driver struct {
	filter        filters.Filter
	name          string
	reply         ReplyFunc
	contextOpts   ContextOptions
	metrics       metrics.Metrics
	tracer        ot.Tracer
	operationName string
	accessLog     bool
}

var errMissingFilter = errors.New("missing filter")

// New creates a Driver.
func New(o Options) (*Driver, error) {
	if o.Filter == nil {
		return nil, errMissingFilter
	}

	d := &Driver{
		filter:        o.Filter,
		name:          filters.NameOf(o.Filter),
		reply:         o.Reply,
		contextOpts:   o.ContextOptions,
		metrics:       o.Metrics,
		tracer:        o.Tracer,
		operationName: o.OperationName,
		accessLog:     !o.AccessLogDisabled,
	}

	if d.name == "" {
		d.name = "default"
	}

	if d.reply == nil {
		d.reply = DefaultReply
	}

	if d.metrics == nil {
		d.metrics = metrics.Void
	}

	if d.tracer == nil {
		d.tracer = ot.GlobalTracer()
	}

	if d.operationName == "" {
		d.operationName = DefaultOperationName
	}

	return d, nil
}

type validator interface {
	IsValid() bool
}

// FormatValue formats an extracted value for plain text replies. Absent
// values, nil or reporting IsValid() == false like the zero
// netip.AddrPort, are formatted as "-".
func FormatValue(v any) string {
	if v == nil {
		return "-"
	}

	if vv, ok := v.(validator); ok && !vv.IsValid() {
		return "-"
	}

	return fmt.Sprint(v)
}

// DefaultReply responds with 200 OK and the extracted values in plain
// text, one per line, see FormatValue.
func DefaultReply(w http.ResponseWriter, _ *http.Request, t filters.Tuple) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, v := range t {
		fmt.Fprintln(w, FormatValue(v))
	}
}

func (d *Driver) startSpan(r *http.Request) ot.Span {
	wireContext, err := d.tracer.Extract(ot.HTTPHeaders, ot.HTTPHeadersCarrier(r.Header))
	if err == nil {
		return d.tracer.StartSpan(d.operationName, ext.RPCServerOption(wireContext))
	}

	span := d.tracer.StartSpan(d.operationName)
	ext.SpanKindRPCServer.Set(span)
	return span
}

func (d *Driver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := logging.NewLoggingWriter(w)

	span := d.startSpan(r)
	defer span.Finish()

	ext.HTTPMethod.Set(span, r.Method)
	ext.HTTPUrl.Set(span, r.URL.String())
	span.SetTag(filterTag, d.name)
	r = r.WithContext(ot.ContextWithSpan(r.Context(), span))

	c := NewContext(r, d.contextOpts)
	id := flowid.From(c.Extensions())
	if id != "" {
		lw.Header().Set(flowid.HeaderName, id)
		span.SetTag(flowIDTag, id)
	}

	var outcome string
	defer func() {
		code := lw.StatusCode()
		if code == 0 {
			if outcome == metrics.OutcomeCancelled {
				code = StatusClientClosedRequest
			} else {
				code = http.StatusOK
			}
		}

		ext.HTTPStatusCode.Set(span, uint16(code))
		d.metrics.MeasureResponse(code, r.Method, start)
		if d.accessLog {
			logging.LogAccess(&logging.AccessEntry{
				Request:      r,
				StatusCode:   code,
				ResponseSize: lw.Bytes(),
				RequestTime:  start,
				Duration:     time.Since(start),
				FlowID:       id,
				Filter:       d.name,
				Outcome:      outcome,
			})
		}
	}()

	t, err := Evaluate(d.filter, c)
	outcome = outcomeOf(err)
	d.metrics.MeasureEvaluation(d.name, start, outcome)
	span.SetTag(outcomeTag, outcome)

	switch outcome {
	case metrics.OutcomeSuccess:
		d.reply(lw, r, t)
	case metrics.OutcomeCancelled:
		log.Debugf("Request abandoned, filter: %s, flow id: %s: %v", d.name, id, err)
	case metrics.OutcomeError:
		ext.Error.Set(span, true)
		log.Errorf("Filter evaluation failed, filter: %s, flow id: %s: %v", d.name, id, err)
		http.Error(lw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		d.reject(lw, span, id, filters.AsRejection(err))
	}
}

func (d *Driver) reject(w http.ResponseWriter, span ot.Span, id string, rej *filters.Rejection) {
	p := rej.Preferred()
	d.metrics.IncRejection(p.Kind().String())

	status := p.Status()
	if status >= http.StatusInternalServerError {
		ext.Error.Set(span, true)
		log.Errorf("Request rejected, filter: %s, flow id: %s: %v", d.name, id, rej)
		http.Error(w, http.StatusText(status), status)
		return
	}

	log.Debugf("Request rejected, filter: %s, flow id: %s: %v", d.name, id, rej)
	http.Error(w, p.Error(), status)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case filters.IsAbandoned(err):
		return metrics.OutcomeCancelled
	case errors.Is(err, filters.ErrNever):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
