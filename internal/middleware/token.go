package middleware

import (
	"net/http"
	"strings"
)

// SessionCookie is the cookie carrying the session token
const SessionCookie = "session"

// ExtractToken returns the session token from the Authorization header,
// the session cookie or the session query parameter, in that order
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("session")
}
