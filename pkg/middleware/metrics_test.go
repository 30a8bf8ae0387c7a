package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first metric of c whose labels include all of labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}

		matched := 0
		for _, lp := range d.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return d
		}
	}
	return nil
}

func counterValue(t *testing.T, labels map[string]string) float64 {
	t.Helper()
	m := collectMetric(httpRequestsTotal, labels)
	require.NotNil(t, m, "no counter for %v", labels)
	return m.GetCounter().GetValue()
}

func gaugeValue(service string) float64 {
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": service})
	if m == nil {
		return -1
	}
	return m.GetGauge().GetValue()
}

// serveWithChi wraps a handler in a chi router so RouteContext is available.
func serveWithChi(mw func(http.Handler) http.Handler, pattern string, handler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get(pattern, handler.ServeHTTP)
	return r
}

func TestPrometheusMetrics_RequestCounting(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("count-svc"), "/api/v1/cart", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	got := counterValue(t, map[string]string{"service": "count-svc", "method": "GET", "path": "/api/v1/cart", "status": "200"})
	assert.Equal(t, float64(3), got)
}

func TestPrometheusMetrics_UsesRoutePatternNotRawPath(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("pattern-svc"), "/api/v1/cart/items/{productID}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart/items/p1", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart/items/p2", nil))

	got := counterValue(t, map[string]string{"service": "pattern-svc", "path": "/api/v1/cart/items/{productID}", "status": "204"})
	assert.Equal(t, float64(2), got)
}

func TestPrometheusMetrics_DurationHistogram(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("hist-svc"), "/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	m := collectMetric(httpRequestDuration, map[string]string{"service": "hist-svc", "status": "201"})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_InFlightGauge(t *testing.T) {
	inFlightSeen := float64(-1)
	handler := serveWithChi(PrometheusMetrics("inflight-svc"), "/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlightSeen = gaugeValue("inflight-svc")
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, float64(1), inFlightSeen)
	assert.Equal(t, float64(0), gaugeValue("inflight-svc"))
}

func TestPrometheusMetrics_DefaultStatusCode(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("default-status-svc"), "/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	got := counterValue(t, map[string]string{"service": "default-status-svc", "status": "200"})
	assert.Equal(t, float64(1), got)
}

func TestPrometheusMetrics_WithoutRouter_UsesUnknownPath(t *testing.T) {
	handler := PrometheusMetrics("bare-svc")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whatever", nil))

	got := counterValue(t, map[string]string{"service": "bare-svc", "path": "unknown"})
	assert.Equal(t, float64(1), got)
}

type mockFlusherWriter struct {
	http.ResponseWriter
	flushed bool
}

func (m *mockFlusherWriter) Flush() { m.flushed = true }

type mockHijackerWriter struct {
	http.ResponseWriter
	hijacked bool
}

func (m *mockHijackerWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	m.hijacked = true
	return nil, nil, nil
}

// minimalResponseWriter is a bare http.ResponseWriter without Flusher/Hijacker.
type minimalResponseWriter struct {
	header http.Header
}

func (m *minimalResponseWriter) Header() http.Header {
	if m.header == nil {
		m.header = make(http.Header)
	}
	return m.header
}

func (m *minimalResponseWriter) Write(b []byte) (int, error) { return len(b), nil }
func (m *minimalResponseWriter) WriteHeader(int)             {}

func TestStatusRecorder_Flush(t *testing.T) {
	mock := &mockFlusherWriter{ResponseWriter: httptest.NewRecorder()}
	rw := newStatusRecorder(mock)
	rw.Flush()
	assert.True(t, mock.flushed)

	bare := newStatusRecorder(&minimalResponseWriter{})
	assert.NotPanics(t, bare.Flush)
}

func TestStatusRecorder_Hijack(t *testing.T) {
	mock := &mockHijackerWriter{ResponseWriter: httptest.NewRecorder()}
	rw := newStatusRecorder(mock)
	_, _, err := rw.Hijack()
	assert.NoError(t, err)
	assert.True(t, mock.hijacked)

	bare := newStatusRecorder(&minimalResponseWriter{})
	_, _, err = bare.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
