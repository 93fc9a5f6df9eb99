package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/playerdata"
	"github.com/mcoot/playerinfo-proxy/internal/wire"
)

// Config holds refresh settings
type Config struct {
	// RefreshInterval is how often every active backend is asked to resend
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	// TriggerInterval is the minimum gap between on-demand refreshes
	TriggerInterval time.Duration `yaml:"trigger_interval" env:"TRIGGER_INTERVAL"`
	// SendTimeout bounds an on-demand refresh round
	SendTimeout time.Duration `yaml:"send_timeout" env:"SEND_TIMEOUT"`
}

// DefaultConfig returns the default refresh settings
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 30 * time.Second,
		TriggerInterval: 5 * time.Second,
		SendTimeout:     5 * time.Second,
	}
}

// Service dispatches received envelopes into the player data service and
// periodically asks backends for a full resend
type Service struct {
	channel Channel
	codec   *wire.Codec
	players *playerdata.Service
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	cfg     Config
	changed chan struct{}

	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// NewService creates a transport service
func NewService(
	channel Channel,
	codec *wire.Codec,
	players *playerdata.Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	return &Service{
		channel: channel,
		codec:   codec,
		players: players,
		logger:  logger.With(slog.String("component", "transport")),
		metrics: metrics,
		cfg:     cfg,
		changed: make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Every(cfg.TriggerInterval), 1),
	}
}

// Config returns the current refresh settings
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig replaces the refresh settings. A running loop picks up the new
// interval immediately and the on-demand throttle takes the new gap.
func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.limiter.SetLimit(rate.Every(cfg.TriggerInterval))

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Service) drop(server model.ServerName, reason string, err error) {
	s.metrics.MessagesDropped.WithLabelValues(reason).Inc()
	s.logger.Warn("dropped message",
		slog.String("server", string(server)),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}

// Handle processes one envelope received from server. Failures are logged
// and counted; none of them propagate.
func (s *Service) Handle(ctx context.Context, server model.ServerName, data []byte) {
	msg, err := s.codec.Decode(data)
	if err != nil {
		s.drop(server, metrics.ReasonMalformed, err)
		return
	}
	s.metrics.MessagesReceived.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case wire.TypePlayerData:
		s.handlePlayerData(ctx, server, msg)
	case wire.TypePlayerRemove:
		id, err := model.ParsePlayerID(msg.PlayerID)
		if err != nil {
			s.drop(server, metrics.ReasonInvalidPlayer, err)
			return
		}
		if _, err := s.players.Remove(ctx, server, id); err != nil {
			s.drop(server, metrics.ReasonStoreError, err)
		}
	case wire.TypeServerInfo:
		info := msg.ServerInfo
		if err := s.players.RecordServerInfo(ctx, server, info.Version, info.OnlinePlayers); err != nil {
			s.drop(server, metrics.ReasonStoreError, err)
		}
	case wire.TypeRefresh:
		s.logger.Debug("ignoring refresh request from backend", slog.String("server", string(server)))
	}
}

func (s *Service) handlePlayerData(ctx context.Context, server model.ServerName, msg wire.Message) {
	// An empty id means the ids travel inside the payload
	if msg.PlayerID == "" {
		ids, err := s.players.UpdateFromPayload(ctx, server, msg.Payload)
		if err != nil {
			s.drop(server, metrics.ReasonInvalidPlayer, err)
			return
		}
		for _, id := range ids {
			s.reconcile(ctx, server, id)
		}
		return
	}

	id, err := model.ParsePlayerID(msg.PlayerID)
	if err != nil {
		s.drop(server, metrics.ReasonInvalidPlayer, err)
		return
	}
	if err := s.players.Update(ctx, server, id, msg.Payload); err != nil {
		s.drop(server, metrics.ReasonStoreError, err)
		return
	}
	s.reconcile(ctx, server, id)
}

func (s *Service) reconcile(ctx context.Context, server model.ServerName, id model.PlayerID) {
	if _, err := s.players.Reconcile(ctx, id, server); err != nil {
		s.logger.Error("reconcile failed",
			slog.String("server", string(server)),
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
}

// RequestRefresh asks every backend holding at least one player to resend
// its data, returning how many backends were sent to successfully
func (s *Service) RequestRefresh(ctx context.Context) int {
	servers, err := s.players.ActiveServers(ctx)
	if err != nil {
		s.logger.Error("could not list backends for refresh", slog.String("error", err.Error()))
		return 0
	}

	s.metrics.RefreshRequests.Inc()
	request := s.codec.EncodeRefreshRequest()
	sent := 0
	for _, server := range servers {
		if err := s.channel.Send(ctx, server, request); err != nil {
			s.logger.Warn("refresh request failed",
				slog.String("server", string(server)),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.metrics.MessagesSent.WithLabelValues(string(wire.TypeRefresh)).Inc()
		sent++
	}
	s.logger.Debug("refresh requested", slog.Int("servers", sent))
	return sent
}

// TriggerRefresh starts an asynchronous refresh unless one was triggered
// within TriggerInterval. It reports whether a refresh was started.
func (s *Service) TriggerRefresh(ctx context.Context) bool {
	if !s.limiter.Allow() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config().SendTimeout)
		defer cancel()
		s.RequestRefresh(ctx)
	}()
	return true
}

// Wait blocks until every triggered refresh has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Run subscribes to the channel and requests a refresh every
// RefreshInterval until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	unsubscribe, err := s.channel.Subscribe(ctx, s.Handle)
	if err != nil {
		return err
	}
	defer unsubscribe()

	cfg := s.Config()
	s.logger.Info("transport started", slog.Duration("refresh_interval", cfg.RefreshInterval))

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			return nil
		case <-s.changed:
			cfg = s.Config()
			ticker.Reset(cfg.RefreshInterval)
			s.logger.Info("refresh interval changed", slog.Duration("refresh_interval", cfg.RefreshInterval))
		case <-ticker.C:
			s.RequestRefresh(ctx)
		}
	}
}
