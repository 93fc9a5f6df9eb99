package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	sharedmw "github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/web/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/web/pages"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	// StaticDir replaces the built-in pages when set
	StaticDir string
}

// NewRouter creates the page router. Every page except the public ones
// sits behind the login gate.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(sharedmw.Logging(cfg.Logger))
	r.Use(middleware.Gate(cfg.AuthService))

	var root fs.FS = pages.FS()
	if cfg.StaticDir != "" {
		root = os.DirFS(cfg.StaticDir)
	}
	r.PathPrefix("/").Handler(http.FileServerFS(root)).Methods(http.MethodGet, http.MethodHead)

	return r
}
