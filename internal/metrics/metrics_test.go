package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/devicecode/pkg/rest"
)

func TestObserveRequest(t *testing.T) {
	r := NewRecorder()

	r.ObserveRequest(rest.RequestInfo{Method: "POST", Path: "/device/verify", StatusCode: 200, Duration: 20 * time.Millisecond})
	r.ObserveRequest(rest.RequestInfo{Method: "POST", Path: "/device/verify", StatusCode: 200, Duration: 30 * time.Millisecond})
	r.ObserveRequest(rest.RequestInfo{Method: "POST", Path: "/device/activate", StatusCode: 0})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("/device/verify", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("/device/activate", "0")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))

	expected := `
# HELP devicecode_requests_total Management API calls by path and HTTP status (0 when no response was received)
# TYPE devicecode_requests_total counter
devicecode_requests_total{code="0",path="/device/activate"} 1
devicecode_requests_total{code="200",path="/device/verify"} 2
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "devicecode_requests_total")
	assert.NoError(t, err)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.ObserveRequest(rest.RequestInfo{Path: "/device/verify", StatusCode: 204})

	require.NoError(t, r.Push(context.Background(), srv.URL, "devicecode"))
	assert.Equal(t, "/metrics/job/devicecode", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewRecorder().Push(context.Background(), srv.URL, "devicecode")
	assert.ErrorContains(t, err, "pushing metrics")
}
