package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/logger"
)

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "info", "json")
	defer logger.Initialize("info", "text")

	status := http.StatusOK
	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFromContext(r.Context()))
		w.WriteHeader(status)
	}))

	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		status = code
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		req.Header.Set(requestIDHeader, "req-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))
	}

	// The 200 is logged at debug and filtered out.
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for i, want := range []struct {
		level  string
		status float64
	}{{"INFO", 404}, {"ERROR", 500}} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[i], &entry))
		assert.Equal(t, want.level, entry["level"])
		assert.Equal(t, want.status, entry["status"])
		assert.Equal(t, "req-1", entry["requestID"])
	}
}
