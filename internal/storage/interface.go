package storage

import (
	"context"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// PlayerStore holds the latest player record per (backend, player) pair.
// Buckets are created lazily on first write; queries against an unknown
// backend return empty results rather than errors. Implementations take
// timestamps from the caller and never read a clock themselves.
type PlayerStore interface {
	// Record operations
	Put(ctx context.Context, server model.ServerName, id model.PlayerID, record model.PlayerRecord) error
	Get(ctx context.Context, server model.ServerName, id model.PlayerID) (model.PlayerRecord, bool, error)
	Delete(ctx context.Context, server model.ServerName, id model.PlayerID) (bool, error)

	// DeleteFromOthers removes id from every bucket except keep
	DeleteFromOthers(ctx context.Context, id model.PlayerID, keep model.ServerName) (int, error)
	// DeleteOlderThan removes every record whose LastUpdated is before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Queries
	Servers(ctx context.Context) ([]model.ServerName, error)
	Counts(ctx context.Context) (map[model.ServerName]int, error)
	Records(ctx context.Context, server model.ServerName) (map[model.PlayerID]model.PlayerRecord, error)

	// Backend status
	PutServerInfo(ctx context.Context, server model.ServerName, info model.ServerInfo) error
	ServerInfo(ctx context.Context, server model.ServerName) (model.ServerInfo, bool, error)
}
