package model

import (
	"time"

	"github.com/google/uuid"
)

// PlayerID identifies a player account across every backend
type PlayerID string

// ServerName identifies a backend game server behind the proxy
type ServerName string

// ParsePlayerID validates s and returns it in canonical hyphenated form
func ParsePlayerID(s string) (PlayerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrInvalidPlayerID
	}
	return PlayerID(id.String()), nil
}

// NewPlayerID returns a random PlayerID (useful for tests and tooling)
func NewPlayerID() PlayerID {
	return PlayerID(uuid.NewString())
}

// PlayerRecord is the latest payload a backend reported for one player.
// Payload is the collector's JSON text and is never interpreted by the store.
type PlayerRecord struct {
	Payload     []byte    `json:"payload"`
	LastUpdated time.Time `json:"last_updated"`
}

// ServerSummary is a backend with the number of players it currently holds
type ServerSummary struct {
	Name        ServerName
	PlayerCount int
	// Info is nil until the backend reports its status
	Info *ServerInfo
}

// ServerInfo is the optional status a backend reports about itself
type ServerInfo struct {
	Version       string
	OnlinePlayers int
	ReportedAt    time.Time
}
