package middleware

import (
	"net/http"
	"net/url"
	"strings"

	sharedmw "github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
)

// LoginPage is where unauthenticated page requests are sent
const LoginPage = "/login.html"

// publicPrefixes are served without a session. Entries ending in "/"
// match by prefix, the rest exactly.
var publicPrefixes = []string{
	LoginPage,
	"/favicon.ico",
	"/css/",
	"/js/",
	"/img/",
}

// IsPublic reports whether path is reachable without logging in
func IsPublic(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

// LoginRedirect is the login page URL that returns to path afterwards
func LoginRedirect(path string) string {
	if path == "" || path == "/" || path == "/index.html" {
		return LoginPage
	}
	return LoginPage + "?redirect=" + url.QueryEscape(path)
}

// Gate sends page requests without a live session to the login page.
// When authentication is disabled every request passes.
func Gate(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authService.Enabled() || IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if token := sharedmw.ExtractToken(r); token != "" {
				if _, ok := authService.Validate(token); ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Redirect(w, r, LoginRedirect(r.URL.Path), http.StatusSeeOther)
		})
	}
}
