package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/web/pages"
)

// Recovery answers a panicking page request with the built-in error page
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		body, err := pages.Read(pages.ErrorPage)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(body)
	})
}
