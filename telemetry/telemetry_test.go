package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	// No tracing section leaves the default provider alone.
	require.NoError(t, Init(&config.Config{}))
	require.NoError(t, Init(nil))

	cases := []*config.TracingConfig{
		{ServiceName: "test-service", Exporter: "stdout"},
		{Exporter: ""},
		{ServiceName: "test-service-otlp", Exporter: "otlp", Endpoint: "http://localhost:4318"},
		{ServiceName: "test-service-otlp-default", Exporter: "otlp"},
	}
	for _, tc := range cases {
		err := Init(&config.Config{Tracing: tc})
		assert.NoError(t, err, "exporter %q", tc.Exporter)
	}

	err := Init(&config.Config{Tracing: &config.TracingConfig{Exporter: "jaeger"}})
	assert.Error(t, err)
}

func TestShutdownWithoutInit(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}

func TestWrapHandler(t *testing.T) {
	h := WrapHandler("test-handler", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("part1"))
		w.Write([]byte("part2"))
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("test-handler", http.MethodPost, "201"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "part1part2", rec.Body.String())
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("test-handler", http.MethodPost, "201"))
	assert.Equal(t, before+1, after)
}

func TestWrapHandlerImplicitOK(t *testing.T) {
	h := WrapHandler("implicit-ok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("implicit-ok", method, "200")))
	}
}

func TestMetricsHandler(t *testing.T) {
	ObserveClientCall("LOADER", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatflow_client_requests_total")
}

func TestObserveClientCall(t *testing.T) {
	ObserveClientCall("BLOCK_ACTION", 0, time.Millisecond)
	ObserveClientCall("BLOCK_ACTION", http.StatusBadRequest, time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(clientRequestsTotal.WithLabelValues("BLOCK_ACTION", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(clientRequestsTotal.WithLabelValues("BLOCK_ACTION", "400")))
}

func TestWrapTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))
	defer srv.Close()

	client := &http.Client{Transport: WrapTransport(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "pong"))
}
