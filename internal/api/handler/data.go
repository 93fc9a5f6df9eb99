package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/playerinfo-proxy/internal/api/apierr"
	"github.com/mcoot/playerinfo-proxy/internal/api/response"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/playerdata"
)

// Refresher asks the backends to resend their player data
type Refresher interface {
	TriggerRefresh(ctx context.Context) bool
}

// DataHandler serves the player data read endpoints
type DataHandler struct {
	players   *playerdata.Service
	refresher Refresher
}

// NewDataHandler creates a new data handler. refresher may be nil.
func NewDataHandler(players *playerdata.Service, refresher Refresher) *DataHandler {
	return &DataHandler{
		players:   players,
		refresher: refresher,
	}
}

// refresh nudges the backends so the next read sees fresher data
func (h *DataHandler) refresh(r *http.Request) {
	if h.refresher != nil {
		h.refresher.TriggerRefresh(r.Context())
	}
}

// Servers handles GET /api/servers
func (h *DataHandler) Servers(w http.ResponseWriter, r *http.Request) {
	h.refresh(r)

	summaries, err := h.players.ListServersWithCounts(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ServersFromModel(summaries))
}

// Players handles GET /api/players
func (h *DataHandler) Players(w http.ResponseWriter, r *http.Request) {
	h.refresh(r)

	server := r.URL.Query().Get("server")
	if server == "" {
		names, err := h.players.ListServers(r.Context())
		if err != nil {
			apierr.WriteError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, response.ServerNamesFromModel(names))
		return
	}

	names, err := h.players.ListPlayers(r.Context(), model.ServerName(server))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	response.JSON(w, http.StatusOK, response.Players{Players: names})
}

// Player handles GET /api/player/{name}
func (h *DataHandler) Player(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	server := r.URL.Query().Get("server")
	if server == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("server parameter is required"))
		return
	}

	payload, ok, err := h.players.PlayerDetail(r.Context(), model.ServerName(server), name)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if !ok {
		apierr.WriteError(w, model.ErrPlayerNotFound)
		return
	}

	response.RawJSON(w, http.StatusOK, payload)
}
