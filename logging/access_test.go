package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logOutput = `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - - -`

func testRequest() *http.Request {
	r, _ := http.NewRequest("GET", "http://frank@127.0.0.1", nil)
	r.RequestURI = "/apache_pb.gif"
	r.RemoteAddr = "127.0.0.1"
	return r
}

func testDate() time.Time {
	l := time.FixedZone("foo", -7*3600)
	return time.Date(2000, 10, 10, 13, 55, 36, 0, l)
}

func testAccessEntry() *AccessEntry {
	return &AccessEntry{
		Request:      testRequest(),
		ResponseSize: 2326,
		StatusCode:   http.StatusTeapot,
		RequestTime:  testDate(),
		Duration:     42 * time.Millisecond,
	}
}

func testAccessLog(t *testing.T, entry *AccessEntry, expectedOutput string) {
	t.Helper()
	resetApplicationLog(t)

	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf})
	LogAccess(entry)

	assert.Equal(t, expectedOutput, strings.TrimSuffix(buf.String(), "\n"))
}

func TestAccessLogFormatFull(t *testing.T) {
	testAccessLog(t, testAccessEntry(), logOutput)
}

func TestAccessLogIgnoresEmptyEntry(t *testing.T) {
	testAccessLog(t, nil, "")
}

func TestNoPanicOnMissingRequest(t *testing.T) {
	entry := testAccessEntry()
	entry.Request = nil
	testAccessLog(t, entry, `- - - [10/Oct/2000:13:55:36 -0700] "  " 418 2326 "" "" 42 - - - -`)
}

func TestAccessLogEvaluation(t *testing.T) {
	entry := testAccessEntry()
	entry.Filter = "api"
	entry.Outcome = "rejected"
	testAccessLog(t, entry, `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - api rejected`)
}

func TestUseXForwarded(t *testing.T) {
	entry := testAccessEntry()
	entry.Request.Header.Set("X-Forwarded-For", "192.168.3.3")
	testAccessLog(t, entry, `192.168.3.3 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - - -`)
}

func TestForwardedWithPort(t *testing.T) {
	entry := testAccessEntry()
	entry.Request.Header.Set("X-Forwarded-For", "192.168.3.3:6969")
	testAccessLog(t, entry, `192.168.3.3 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - - -`)
}

func TestPeerWithPort(t *testing.T) {
	entry := testAccessEntry()
	entry.Request.RemoteAddr = "192.168.3.3:6969"
	testAccessLog(t, entry, `192.168.3.3 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - - -`)
}

func TestMissingHostFallback(t *testing.T) {
	entry := testAccessEntry()
	entry.Request.RemoteAddr = ""
	testAccessLog(t, entry, `- - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 - - -`)
}

func TestAccessLogFlowID(t *testing.T) {
	entry := testAccessEntry()
	entry.FlowID = "01B6Y80KHY4XS20161302R3VC0"
	testAccessLog(t, entry, `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.1" 418 2326 "" "" 42 127.0.0.1 01B6Y80KHY4XS20161302R3VC0 - -`)
}

func TestAccessLogJSON(t *testing.T) {
	resetApplicationLog(t)

	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf, AccessLogJSONEnabled: true})

	entry := testAccessEntry()
	entry.FlowID = "abcdefgh"
	entry.Filter = "api"
	LogAccess(entry)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "127.0.0.1", got["host"])
	assert.Equal(t, "GET", got["method"])
	assert.Equal(t, float64(http.StatusTeapot), got["status"])
	assert.Equal(t, "abcdefgh", got["flow-id"])
	assert.Equal(t, "api", got["filter"])
	assert.Equal(t, "-", got["outcome"])
	assert.Equal(t, float64(42), got["duration"])
}
