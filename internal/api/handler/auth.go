package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/playerinfo-proxy/internal/api/apierr"
	"github.com/mcoot/playerinfo-proxy/internal/api/request"
	"github.com/mcoot/playerinfo-proxy/internal/api/response"
	sharedmw "github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
)

// AuthHandler handles the login endpoints
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := request.DecodeLogin(w, r)
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sharedmw.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.authService.Settings().SessionTimeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, http.StatusOK, response.Login{
		Success: true,
		Message: "Login successful",
		Session: sess.Token,
	})
}

// Check handles GET /api/auth/check
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	out := response.AuthCheck{AuthEnabled: h.authService.Enabled()}

	if token := sharedmw.ExtractToken(r); token != "" {
		if sess, ok := h.authService.Validate(token); ok {
			out.LoggedIn = true
			out.Username = sess.Username
			out.Permission = string(sess.Permission)
		}
	}

	response.JSON(w, http.StatusOK, out)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sharedmw.ExtractToken(r); token != "" {
		if sess, ok := h.authService.Validate(token); ok {
			h.logger.Info("logout", slog.String("username", sess.Username))
		}
		h.authService.Logout(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sharedmw.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, http.StatusOK, response.Message{
		Success: true,
		Message: "Logged out",
	})
}
