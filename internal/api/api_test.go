package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/playerinfo-proxy/internal/api"
	"github.com/mcoot/playerinfo-proxy/internal/api/apierr"
	"github.com/mcoot/playerinfo-proxy/internal/api/response"
	"github.com/mcoot/playerinfo-proxy/internal/factory"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/testutil"
)

const (
	aliceID = model.PlayerID("0f8fad5b-d9cb-469f-a165-70867728950e")
	bobID   = model.PlayerID("7c9e6679-7425-40de-944b-e07fc1f90ae7")
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:        testutil.NopLogger(),
		Metrics:       app.Metrics,
		AuthService:   app.Auth,
		PlayerData:    app.PlayerData,
		ExposeMetrics: true,
	})

	return &testServer{
		t:       t,
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) login(username, password string) *httptest.ResponseRecorder {
	return ts.request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
}

func (ts *testServer) mustLogin() string {
	ts.t.Helper()
	rr := ts.login("admin", "admin123")
	require.Equal(ts.t, http.StatusOK, rr.Code)

	var resp response.Login
	require.NoError(ts.t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Session
}

func (ts *testServer) seed(server model.ServerName, id model.PlayerID, payload string) {
	ts.t.Helper()
	require.NoError(ts.t, ts.app.PlayerData.Update(ts.t.Context(), server, id, []byte(payload)))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.ErrorResponse {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestJSONResponsesAreNotCached(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestLoginSetsCookie(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.login("admin", "admin123")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Login
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Session)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, resp.Session, cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, 1440*60, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginWithForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{"username": {"viewer"}, "password": {"view123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginBadPassword(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.login("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	resp := decodeError(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, apierr.CodeInvalidCredentials, resp.Code)
}

func TestLoginMissingFields(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.login("admin", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeMissingCredentials, decodeError(t, rr).Code)
}

func TestLoginMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginLockout(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 4; i++ {
		rr := ts.login("admin", "wrong")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Equal(t, apierr.CodeInvalidCredentials, decodeError(t, rr).Code)
	}

	rr := ts.login("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, apierr.CodeAccountLocked, resp.Code)
	assert.Contains(t, resp.Message, "30 minutes")

	// The correct password is refused while locked
	ts.app.MockClock.Advance(10 * time.Minute)
	rr = ts.login("admin", "admin123")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	resp = decodeError(t, rr)
	assert.Equal(t, apierr.CodeAccountLocked, resp.Code)
	assert.Contains(t, resp.Message, "20 minutes")

	ts.app.MockClock.Advance(20 * time.Minute)
	rr = ts.login("admin", "admin123")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/auth/check", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"loggedIn":false,"authEnabled":true}`, rr.Body.String())

	token := ts.mustLogin()
	rr = ts.request(http.MethodGet, "/api/auth/check", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"loggedIn":true,"authEnabled":true,"username":"admin","permission":"admin"}`, rr.Body.String())
}

func TestAuthCheckFromQueryParameter(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()

	rr := ts.request(http.MethodGet, "/api/auth/check?session="+token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthCheck
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.LoggedIn)
}

// Login, read, logout, then replay the old token
func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()

	rr := ts.request(http.MethodGet, "/api/servers", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Logged out"}`, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)

	rr = ts.request(http.MethodGet, "/api/servers", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionCookieAuthenticates(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSessionExpiresAfterIdle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()

	ts.app.MockClock.Advance(23 * time.Hour)
	require.Equal(t, http.StatusOK, ts.request(http.MethodGet, "/api/servers", nil, token).Code)

	// The previous request slid the expiry forward
	ts.app.MockClock.Advance(23 * time.Hour)
	require.Equal(t, http.StatusOK, ts.request(http.MethodGet, "/api/servers", nil, token).Code)

	ts.app.MockClock.Advance(24 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, ts.request(http.MethodGet, "/api/servers", nil, token).Code)
}

func TestProtectedEndpointsRequireLogin(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/servers", "/api/players", "/api/player/Alice?server=lobby"} {
		t.Run(path, func(t *testing.T) {
			rr := ts.request(http.MethodGet, path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			resp := decodeError(t, rr)
			assert.False(t, resp.Success)
			assert.Equal(t, apierr.CodeUnauthorized, resp.Code)
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	ts := newTestServer(t)
	creds := auth.DefaultCredentials()
	creds.Settings.Enabled = false
	ts.app.Auth.Apply(creds)

	rr := ts.request(http.MethodGet, "/api/servers", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/auth/check", nil, "")
	assert.JSONEq(t, `{"loggedIn":false,"authEnabled":false}`, rr.Body.String())
}

func TestListServers(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()

	rr := ts.request(http.MethodGet, "/api/servers", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"servers":[]}`, rr.Body.String())

	ts.seed("survival", aliceID, `{"name":"Alice"}`)
	ts.seed("lobby", bobID, `{"name":"Bob"}`)

	rr = ts.request(http.MethodGet, "/api/servers", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"servers":[{"name":"lobby","playerCount":1},{"name":"survival","playerCount":1}]}`, rr.Body.String())
}

func TestListPlayers(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()
	ts.seed("lobby", aliceID, `{"name":"Alice"}`)
	ts.seed("lobby", bobID, `{"name":"Bob"}`)

	rr := ts.request(http.MethodGet, "/api/players?server=lobby", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"players":["Alice","Bob"]}`, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/players?server=nowhere", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"players":[]}`, rr.Body.String())
}

func TestListPlayersWithoutServerListsServers(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()
	ts.seed("survival", aliceID, `{"name":"Alice"}`)
	ts.seed("lobby", bobID, `{"name":"Bob"}`)

	rr := ts.request(http.MethodGet, "/api/players", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"servers":["lobby","survival"]}`, rr.Body.String())
}

func TestPlayerDetail(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()
	payload := `{"name":"Alice","health":20,"inventory":["sword"]}`
	ts.seed("lobby", aliceID, payload)

	rr := ts.request(http.MethodGet, "/api/player/alice?server=lobby", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payload, rr.Body.String())
}

func TestPlayerDetailErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.mustLogin()
	ts.seed("lobby", aliceID, `{"name":"Alice"}`)

	rr := ts.request(http.MethodGet, "/api/player/Alice", nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)

	rr = ts.request(http.MethodGet, "/api/player/Carol?server=lobby", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	resp := decodeError(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, apierr.CodePlayerNotFound, resp.Code)

	rr = ts.request(http.MethodGet, "/api/player/Alice?server=survival", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodGet, "/api/health", nil, "")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `pinfo_http_request_duration_seconds_count{method="GET",route="/api/health",status="200"} 1`)
}
