package response

import (
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// Message is the body of simple success responses
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login is returned by a successful login
type Login struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Session string `json:"session"`
}

// AuthCheck reports whether the caller holds a live session
type AuthCheck struct {
	LoggedIn    bool   `json:"loggedIn"`
	AuthEnabled bool   `json:"authEnabled"`
	Username    string `json:"username,omitempty"`
	Permission  string `json:"permission,omitempty"`
}

// Server is a backend in the server list
type Server struct {
	Name          string     `json:"name"`
	PlayerCount   int        `json:"playerCount"`
	Version       string     `json:"version,omitempty"`
	OnlinePlayers *int       `json:"onlinePlayers,omitempty"`
	ReportedAt    *time.Time `json:"reportedAt,omitempty"`
}

// ServerFromModel converts a model.ServerSummary to a response Server
func ServerFromModel(s model.ServerSummary) Server {
	out := Server{
		Name:        string(s.Name),
		PlayerCount: s.PlayerCount,
	}
	if s.Info != nil {
		online := s.Info.OnlinePlayers
		reported := s.Info.ReportedAt
		out.Version = s.Info.Version
		out.OnlinePlayers = &online
		out.ReportedAt = &reported
	}
	return out
}

// Servers is the body of GET /api/servers
type Servers struct {
	Servers []Server `json:"servers"`
}

// ServersFromModel converts server summaries, never returning a nil slice
func ServersFromModel(summaries []model.ServerSummary) Servers {
	out := Servers{Servers: make([]Server, 0, len(summaries))}
	for _, s := range summaries {
		out.Servers = append(out.Servers, ServerFromModel(s))
	}
	return out
}

// ServerNames is the body of GET /api/players without a server
type ServerNames struct {
	Servers []string `json:"servers"`
}

// ServerNamesFromModel converts server names, never returning a nil slice
func ServerNamesFromModel(names []model.ServerName) ServerNames {
	out := ServerNames{Servers: make([]string, 0, len(names))}
	for _, n := range names {
		out.Servers = append(out.Servers, string(n))
	}
	return out
}

// Players is the body of GET /api/players?server=NAME
type Players struct {
	Players []string `json:"players"`
}

// Health is the body of GET /api/health
type Health struct {
	Status string `json:"status"`
}
