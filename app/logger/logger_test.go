package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger_LogsCompletedRequest(t *testing.T) {
	var buf bytes.Buffer
	log := New("production", &buf)

	h := middleware.RequestID(StructuredLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Request completed", entry["msg"])
	assert.Equal(t, "/ping", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.NotEmpty(t, entry["req_id"])
}

func TestNew_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New("production", &buf)
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
