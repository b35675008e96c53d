package logging

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

var errHijackNotSupported = errors.New("could not hijack connection")

// LoggingWriter wraps a response writer and records the status code and
// the size of the response, for the access log.
type LoggingWriter struct {
	writer http.ResponseWriter
	code   int
	bytes  int64
}

// NewLoggingWriter wraps w.
func NewLoggingWriter(w http.ResponseWriter) *LoggingWriter {
	return &LoggingWriter{writer: w}
}

func (lw *LoggingWriter) Write(data []byte) (count int, err error) {
	if lw.code == 0 {
		lw.code = http.StatusOK
	}

	count, err = lw.writer.Write(data)
	lw.bytes += int64(count)
	return
}

func (lw *LoggingWriter) WriteHeader(code int) {
	lw.writer.WriteHeader(code)
	if code == 0 {
		code = http.StatusOK
	}

	lw.code = code
}

func (lw *LoggingWriter) Header() http.Header {
	return lw.writer.Header()
}

func (lw *LoggingWriter) Flush() {
	if f, ok := lw.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func (lw *LoggingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hij, ok := lw.writer.(http.Hijacker)
	if ok {
		return hij.Hijack()
	}

	return nil, nil, errHijackNotSupported
}

// Unwrap returns the wrapped response writer, for http.ResponseController.
func (lw *LoggingWriter) Unwrap() http.ResponseWriter {
	return lw.writer
}

// StatusCode returns the status code of the response, 200 when the body
// was written without an explicit status, and 0 when nothing was written.
func (lw *LoggingWriter) StatusCode() int {
	return lw.code
}

// Bytes returns the number of body bytes written.
func (lw *LoggingWriter) Bytes() int64 {
	return lw.bytes
}
