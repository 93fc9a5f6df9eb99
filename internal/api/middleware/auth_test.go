package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/mocks"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/services/session"
	"github.com/mcoot/playerinfo-proxy/internal/testutil"
)

func newAuthService() *auth.Service {
	clock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m := metrics.New()
	sessions := session.New(clock, mocks.NewMockRandom(), testutil.NopLogger(), m, session.DefaultConfig())
	return auth.New(sessions, clock, testutil.NopLogger(), m, auth.DefaultCredentials())
}

func TestRequireLoginStoresSession(t *testing.T) {
	authService := newAuthService()
	sess, err := authService.Login(t.Context(), "viewer", "view123")
	require.NoError(t, err)

	var got session.Session
	var found bool
	h := RequireLogin(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = GetSession(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.Equal(t, "viewer", got.Username)
	assert.Equal(t, model.PermissionView, got.Permission)
}

func TestRequireLoginRejectsUnknownToken(t *testing.T) {
	h := RequireLogin(newAuthService())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "nope"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetSessionWithoutLogin(t *testing.T) {
	_, ok := GetSession(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
