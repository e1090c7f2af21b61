package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityquest-mcp-service/pkg/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestRequestID(t *testing.T) {
	t.Run("Generated when absent", func(t *testing.T) {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rr.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("Propagated when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		rr := httptest.NewRecorder()
		RequestID(okHandler).ServeHTTP(rr, req)

		assert.Equal(t, "trace-123", rr.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLoggerWithWriter("http", &buf)

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("widget exploded")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
	assert.Contains(t, buf.String(), "widget exploded")
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLoggerWithWriter("http", &buf)

	handler := RequestID(RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	require.Equal(t, http.StatusTeapot, rr.Code)
	line := buf.String()
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"path":"/mcp"`)
	assert.Contains(t, line, rr.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	t.Run("Simple request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rr.Header().Get("Access-Control-Max-Age"))
		assert.Equal(t, "ok", rr.Body.String())
	})

	t.Run("Preflight short-circuits", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/games", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
		assert.Empty(t, rr.Body.String())
	})
}
