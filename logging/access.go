package logging

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	snet "github.com/zalando/sieve/net"
)

const (
	dateFormat = "02/Jan/2006:15:04:05 -0700"

	// remote_host - - [date] "method uri protocol" status response_size "referer" "user_agent"
	combinedLogFormat = `%s - - [%s] "%s %s %s" %d %d "%s" "%s"`

	// followed by the duration in ms, the requested host, the flow id, the
	// name of the filter and the outcome of the evaluation
	accessLogFormat = combinedLogFormat + " %d %s %s %s %s\n"
)

var accessLogKeys = []string{
	"host", "timestamp", "method", "uri", "proto",
	"status", "response-size", "referer", "user-agent",
	"duration", "requested-host", "flow-id", "filter", "outcome",
}

// AccessEntry is an access log entry.
type AccessEntry struct {

	// The client request.
	Request *http.Request

	// The status code of the response.
	StatusCode int

	// The size of the response in bytes.
	ResponseSize int64

	// The time spent processing request.
	Duration time.Duration

	// The time that the request was received.
	RequestTime time.Time

	// The flow id of the request, if any.
	FlowID string

	// Name of the evaluated filter.
	Filter string

	// Outcome of the evaluation, see the metrics package.
	Outcome string
}

type accessLogFormatter struct {
	format string
}

var accessLog atomic.Pointer[logrus.Logger]

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	values := make([]any, len(accessLogKeys))
	for i, key := range accessLogKeys {
		values[i] = e.Data[key]
	}

	return fmt.Appendf(nil, f.format, values...), nil
}

func (e *AccessEntry) fields() logrus.Fields {
	f := logrus.Fields{
		"timestamp":      e.RequestTime.Format(dateFormat),
		"host":           "-",
		"method":         "",
		"uri":            "",
		"proto":          "",
		"referer":        "",
		"user-agent":     "",
		"requested-host": "-",
		"status":         e.StatusCode,
		"response-size":  e.ResponseSize,
		"duration":       e.Duration.Milliseconds(),
		"flow-id":        orDash(e.FlowID),
		"filter":         orDash(e.Filter),
		"outcome":        orDash(e.Outcome),
	}

	r := e.Request
	if r == nil {
		return f
	}

	if a := snet.RemoteAddr(r); a.IsValid() {
		f["host"] = a.String()
	}

	f["method"] = r.Method
	f["uri"] = r.RequestURI
	f["proto"] = r.Proto
	f["referer"] = r.Referer()
	f["user-agent"] = r.UserAgent()
	f["requested-host"] = orDash(r.Host)
	return f
}

// LogAccess logs an access event in Apache combined log format, followed
// by the duration, the requested host, the flow id, the filter and the
// outcome. Nothing is logged when the access log is disabled.
func LogAccess(entry *AccessEntry) {
	l := accessLog.Load()
	if l == nil || entry == nil {
		return
	}

	l.WithFields(entry.fields()).Infoln()
}
