package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type prefixFormatter struct {
	prefix    string
	formatter logrus.Formatter
}

// Options for initializing logging.
type Options struct {

	// Level of the application log, logrus.InfoLevel when not set.
	ApplicationLogLevel logrus.Level

	// Prefix for application log entries. Primarily used to be
	// able to select between access log and application log
	// entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil,
	// os.Stderr is used.
	ApplicationLogOutput io.Writer

	// When set, the application log is written in JSON format.
	ApplicationLogJSONEnabled bool

	// Output for the access log entries, when nil, os.Stderr is
	// used.
	AccessLogOutput io.Writer

	// When set, no access log is printed.
	AccessLogDisabled bool

	// When set, the access log is written in JSON format.
	AccessLogJSONEnabled bool
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}

	return append([]byte(f.prefix), b...), nil
}

func initApplicationLog(o Options) {
	level := o.ApplicationLogLevel
	if level == logrus.PanicLevel {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)

	var formatter logrus.Formatter = &logrus.TextFormatter{}
	if o.ApplicationLogJSONEnabled {
		formatter = &logrus.JSONFormatter{}
	}

	if o.ApplicationLogPrefix != "" {
		formatter = &prefixFormatter{o.ApplicationLogPrefix, formatter}
	}

	logrus.SetFormatter(formatter)

	if o.ApplicationLogOutput != nil {
		logrus.SetOutput(o.ApplicationLogOutput)
	}
}

func initAccessLog(output io.Writer, accessLogJSONEnabled bool) {
	l := logrus.New()
	if accessLogJSONEnabled {
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: dateFormat, DisableTimestamp: true}
	} else {
		l.Formatter = &accessLogFormatter{accessLogFormat}
	}

	l.Out = output
	l.Level = logrus.InfoLevel
	accessLog.Store(l)
}

// Init initializes logging. It is meant to be called once, during
// startup.
func Init(o Options) {
	initApplicationLog(o)

	if o.AccessLogDisabled {
		accessLog.Store(nil)
		return
	}

	if o.AccessLogOutput == nil {
		o.AccessLogOutput = os.Stderr
	}

	initAccessLog(o.AccessLogOutput, o.AccessLogJSONEnabled)
}
