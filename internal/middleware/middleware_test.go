package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func teapot(w http.ResponseWriter, _ *http.Request, _ any) {
	w.WriteHeader(http.StatusTeapot)
}

func TestRecoveryWritesPanicResponse(t *testing.T) {
	logger, buf := captureLogger()
	h := Recovery(logger, teapot)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/servers", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	entry := lastLogLine(t, buf)
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "/api/servers", entry["path"])
	assert.Equal(t, false, entry["response_started"])
}

func TestRecoveryLeavesStartedResponse(t *testing.T) {
	logger, buf := captureLogger()
	h := Recovery(logger, teapot)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "partial", rr.Body.String())
	assert.Equal(t, true, lastLogLine(t, buf)["response_started"])
}

func TestRecoveryReraisesAbort(t *testing.T) {
	logger, _ := captureLogger()
	h := Recovery(logger, teapot)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "INFO"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logger, buf := captureLogger()
			h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/players", nil))

			entry := lastLogLine(t, buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, float64(4), entry["size"])
		})
	}
}

func TestResponseWriterIgnoresSecondHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	w := NewResponseWriter(rr)

	assert.False(t, w.Started())
	_, _ = w.Write([]byte("x"))
	w.WriteHeader(http.StatusInternalServerError)

	assert.True(t, w.Started())
	assert.Equal(t, http.StatusOK, w.Status())
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "abc"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "fromcookie"}) }, "fromcookie"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "session=fromquery" }, "fromquery"},
		{"header wins over cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer abc")
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "fromcookie"})
		}, "abc"},
		{"basic auth ignored", func(r *http.Request) { r.Header.Set("Authorization", "Basic eHl6") }, ""},
		{"none", func(*http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}
