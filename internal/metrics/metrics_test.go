package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()

	a.LoginAttempts.WithLabelValues(LoginSuccess).Inc()

	assert.Contains(t, scrape(t, a), `pinfo_login_attempts_total{result="success"} 1`)
	assert.NotContains(t, scrape(t, b), `pinfo_login_attempts_total{result="success"}`)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.MessagesReceived.WithLabelValues("PlayerData").Add(3)

	body := scrape(t, m)
	assert.Contains(t, body, `pinfo_wire_messages_received_total{type="PlayerData"} 3`)
	assert.Contains(t, body, "go_goroutines")
}
