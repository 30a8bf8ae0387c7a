package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRecorder_RecordsFirstStatusAndBytes(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())

	rec.WriteHeader(http.StatusConflict)
	rec.WriteHeader(http.StatusInternalServerError)
	_, _ = rec.Write([]byte(`{"error":{}}`))

	assert.Equal(t, http.StatusConflict, rec.status)
	assert.Equal(t, len(`{"error":{}}`), rec.bytes)
}

func TestStatusRecorder_ImplicitOK(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, rec.status)
}

func TestNewStatusRecorder_ReusesExisting(t *testing.T) {
	outer := newStatusRecorder(httptest.NewRecorder())
	assert.Same(t, outer, newStatusRecorder(outer))
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	inner := httptest.NewRecorder()
	assert.Equal(t, http.ResponseWriter(inner), newStatusRecorder(inner).Unwrap())
}
