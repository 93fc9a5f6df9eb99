package memory

import (
	"bytes"
	"context"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/shardmap"
	"github.com/mcoot/playerinfo-proxy/internal/storage"
)

// bucketShards is smaller than the top-level shard count: a single backend
// rarely holds more than a few hundred players.
const bucketShards = 8

type bucket = shardmap.Map[model.PlayerID, model.PlayerRecord]

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	buckets *shardmap.Map[model.ServerName, *bucket]
	infos   *shardmap.Map[model.ServerName, model.ServerInfo]
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		buckets: shardmap.New[model.ServerName, *bucket](shardmap.DefaultShards),
		infos:   shardmap.New[model.ServerName, model.ServerInfo](shardmap.DefaultShards),
	}
}

// Ensure Storage implements the interface
var _ storage.PlayerStore = (*Storage)(nil)

func (s *Storage) bucket(server model.ServerName) *bucket {
	if b, ok := s.buckets.Load(server); ok {
		return b
	}
	b, _ := s.buckets.LoadOrStore(server, shardmap.New[model.PlayerID, model.PlayerRecord](bucketShards))
	return b
}

// Record operations

func (s *Storage) Put(ctx context.Context, server model.ServerName, id model.PlayerID, record model.PlayerRecord) error {
	record.Payload = bytes.Clone(record.Payload)
	s.bucket(server).Store(id, record)
	return nil
}

func (s *Storage) Get(ctx context.Context, server model.ServerName, id model.PlayerID) (model.PlayerRecord, bool, error) {
	b, ok := s.buckets.Load(server)
	if !ok {
		return model.PlayerRecord{}, false, nil
	}
	rec, ok := b.Load(id)
	return rec, ok, nil
}

func (s *Storage) Delete(ctx context.Context, server model.ServerName, id model.PlayerID) (bool, error) {
	b, ok := s.buckets.Load(server)
	if !ok {
		return false, nil
	}
	_, removed := b.Delete(id)
	return removed, nil
}

func (s *Storage) DeleteFromOthers(ctx context.Context, id model.PlayerID, keep model.ServerName) (int, error) {
	removed := 0
	s.buckets.Range(func(server model.ServerName, b *bucket) bool {
		if server == keep {
			return true
		}
		if _, ok := b.Delete(id); ok {
			removed++
		}
		return true
	})
	return removed, nil
}

func (s *Storage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	s.buckets.Range(func(_ model.ServerName, b *bucket) bool {
		removed += b.DeleteIf(func(_ model.PlayerID, rec model.PlayerRecord) bool {
			return rec.LastUpdated.Before(cutoff)
		})
		return true
	})
	return removed, nil
}

// Queries

func (s *Storage) Servers(ctx context.Context) ([]model.ServerName, error) {
	return s.buckets.Keys(), nil
}

func (s *Storage) Counts(ctx context.Context) (map[model.ServerName]int, error) {
	counts := make(map[model.ServerName]int)
	s.buckets.Range(func(server model.ServerName, b *bucket) bool {
		counts[server] = b.Len()
		return true
	})
	return counts, nil
}

func (s *Storage) Records(ctx context.Context, server model.ServerName) (map[model.PlayerID]model.PlayerRecord, error) {
	records := make(map[model.PlayerID]model.PlayerRecord)
	b, ok := s.buckets.Load(server)
	if !ok {
		return records, nil
	}
	b.Range(func(id model.PlayerID, rec model.PlayerRecord) bool {
		records[id] = rec
		return true
	})
	return records, nil
}

// Backend status

func (s *Storage) PutServerInfo(ctx context.Context, server model.ServerName, info model.ServerInfo) error {
	s.infos.Store(server, info)
	return nil
}

func (s *Storage) ServerInfo(ctx context.Context, server model.ServerName) (model.ServerInfo, bool, error) {
	info, ok := s.infos.Load(server)
	return info, ok, nil
}
