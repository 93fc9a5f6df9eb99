package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/playerinfo-proxy/internal/api/apierr"
	"github.com/mcoot/playerinfo-proxy/internal/middleware"
)

// Recovery answers a panicking API request with a JSON 500
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
