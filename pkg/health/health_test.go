package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	code, resp := serve(t, NewHandler().LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler()
	h.Register("storage", func(context.Context) error { return nil })
	h.Register("kafka", func(context.Context) error { return nil })

	code, resp := serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReadiness_OneDown(t *testing.T) {
	h := NewHandler()
	h.Register("storage", func(context.Context) error { return errors.New("dial tcp: connection refused") })
	h.Register("kafka", func(context.Context) error { return nil })

	code, resp := serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["storage"].Status)
	assert.Contains(t, resp.Checks["storage"].Error, "connection refused")
	assert.Equal(t, StatusUp, resp.Checks["kafka"].Status)
}

func TestReadiness_NoCheckers(t *testing.T) {
	code, resp := serve(t, NewHandler().ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Checks)
}
