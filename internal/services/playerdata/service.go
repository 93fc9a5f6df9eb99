// Package playerdata aggregates the player records reported by every backend
// and answers the read-side queries the HTTP API needs.
package playerdata

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/clock"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/storage"
)

// Config holds staleness settings
type Config struct {
	// CleanupInterval is how often the staleness sweep runs
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
	// MaxAge is how long a record survives without an update
	MaxAge time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

// DefaultConfig returns the default staleness settings
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 5 * time.Minute,
		MaxAge:          60 * time.Minute,
	}
}

// Service owns the per-backend player buckets
type Service struct {
	store   storage.PlayerStore
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	cfg     Config
	changed chan struct{}
}

// New creates a new player data service
func New(
	store storage.PlayerStore,
	clock clock.Clock,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	return &Service{
		store:   store,
		clock:   clock,
		logger:  logger.With(slog.String("component", "playerdata")),
		metrics: metrics,
		cfg:     cfg,
		changed: make(chan struct{}, 1),
	}
}

// Config returns the current staleness settings
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig replaces the staleness settings. A running sweep loop picks up
// the new interval immediately.
func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Update stores payload as the latest record for id on server.
// The last write received wins.
func (s *Service) Update(ctx context.Context, server model.ServerName, id model.PlayerID, payload []byte) error {
	return s.store.Put(ctx, server, id, model.PlayerRecord{
		Payload:     payload,
		LastUpdated: s.clock.Now(),
	})
}

// UpdateFromPayload derives player ids from the payload itself and stores
// one record per player, returning the ids written.
func (s *Service) UpdateFromPayload(ctx context.Context, server model.ServerName, payload []byte) ([]model.PlayerID, error) {
	entries, err := splitPayload(payload)
	if err != nil {
		return nil, err
	}

	ids := make([]model.PlayerID, 0, len(entries))
	for id, entry := range entries {
		if err := s.Update(ctx, server, id, entry); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove deletes the record for id on server; absent records are a no-op
func (s *Service) Remove(ctx context.Context, server model.ServerName, id model.PlayerID) (bool, error) {
	return s.store.Delete(ctx, server, id)
}

// Reconcile removes id from every backend other than current, so that a
// player who moved is only reported where they now are.
func (s *Service) Reconcile(ctx context.Context, id model.PlayerID, current model.ServerName) (int, error) {
	removed, err := s.store.DeleteFromOthers(ctx, id, current)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.metrics.ReconcileRemovals.Add(float64(removed))
		s.logger.Debug("reconciled player",
			slog.String("player_id", string(id)),
			slog.String("server", string(current)),
			slog.Int("removed", removed),
		)
	}
	return removed, nil
}

// CleanupStale removes every record not updated within maxAge
func (s *Service) CleanupStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return removed, err
	}

	s.metrics.StaleRemoved.Add(float64(removed))
	if removed > 0 {
		s.logger.Info("removed stale player records",
			slog.Int("removed", removed),
			slog.Duration("max_age", maxAge),
		)
	} else {
		s.logger.Debug("staleness sweep found nothing to remove")
	}
	return removed, nil
}

// RecordServerInfo stores a backend's self-reported status
func (s *Service) RecordServerInfo(ctx context.Context, server model.ServerName, version string, onlinePlayers int) error {
	return s.store.PutServerInfo(ctx, server, model.ServerInfo{
		Version:       version,
		OnlinePlayers: onlinePlayers,
		ReportedAt:    s.clock.Now(),
	})
}

// Queries

// ListServers returns every known backend, sorted by name
func (s *Service) ListServers(ctx context.Context) ([]model.ServerName, error) {
	servers, err := s.store.Servers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i] < servers[j] })
	return servers, nil
}

// ListServersWithCounts returns every known backend with its player count,
// plus any status the backend reported, sorted by name
func (s *Service) ListServersWithCounts(ctx context.Context) ([]model.ServerSummary, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ServerSummary, 0, len(counts))
	for server, count := range counts {
		s.metrics.StoredRecords.WithLabelValues(string(server)).Set(float64(count))

		summary := model.ServerSummary{Name: server, PlayerCount: count}
		info, ok, err := s.store.ServerInfo(ctx, server)
		if err != nil {
			return nil, err
		}
		if ok {
			summary.Info = &info
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// ActiveServers returns the backends currently holding at least one player
func (s *Service) ActiveServers(ctx context.Context) ([]model.ServerName, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, err
	}
	var active []model.ServerName
	for server, count := range counts {
		if count > 0 {
			active = append(active, server)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active, nil
}

// ListPlayers returns the names of the players on server, sorted.
// Records without a parseable name are skipped with a warning.
func (s *Service) ListPlayers(ctx context.Context, server model.ServerName) ([]string, error) {
	records, err := s.store.Records(ctx, server)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for id, rec := range records {
		name, ok := playerName(rec.Payload)
		if !ok {
			s.logger.Warn("player record has no readable name",
				slog.String("server", string(server)),
				slog.String("player_id", string(id)),
			)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// PlayerDetail returns the stored payload of the player on server whose
// name matches case-insensitively
func (s *Service) PlayerDetail(ctx context.Context, server model.ServerName, name string) ([]byte, bool, error) {
	records, err := s.store.Records(ctx, server)
	if err != nil {
		return nil, false, err
	}
	for _, rec := range records {
		if nameMatches(rec.Payload, name) {
			return rec.Payload, true, nil
		}
	}
	return nil, false, nil
}

// Run sweeps stale records every CleanupInterval until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	cfg := s.Config()
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	s.logger.Info("staleness sweep started",
		slog.Duration("interval", cfg.CleanupInterval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			cfg = s.Config()
			ticker.Reset(cfg.CleanupInterval)
		case <-ticker.C:
			if _, err := s.CleanupStale(ctx, s.Config().MaxAge); err != nil {
				s.logger.Error("staleness sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
