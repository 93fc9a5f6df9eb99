// Package session keeps opaque login tokens with sliding expiry
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/clock"
	"github.com/mcoot/playerinfo-proxy/internal/dependencies/random"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/shardmap"
)

// TokenLength is the length of generated session tokens
const TokenLength = 32

// Errors
var (
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Session represents an authenticated session
type Session struct {
	Token      string
	Username   string
	Permission model.Permission
	CreatedAt  time.Time
	LastAccess time.Time
}

// Config holds configuration for the session store
type Config struct {
	// Timeout is the idle time after which a session expires
	Timeout time.Duration `yaml:"-"`
	// SweepInterval is how often expired sessions are evicted in the background
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       24 * time.Hour,
		SweepInterval: 30 * time.Minute,
	}
}

// Service is the in-memory session store
type Service struct {
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	metrics *metrics.Metrics

	sessions      *shardmap.Map[string, Session]
	timeout       atomic.Int64
	sweepInterval atomic.Int64
	changed       chan struct{}
}

// New creates a new session store
func New(
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	s := &Service{
		clock:         clock,
		random:        random,
		logger:        logger.With(slog.String("component", "session")),
		metrics:       metrics,
		sessions:      shardmap.New[string, Session](shardmap.DefaultShards),
		changed:       make(chan struct{}, 1),
	}
	s.timeout.Store(int64(cfg.Timeout))
	s.sweepInterval.Store(int64(cfg.SweepInterval))
	return s
}

// SweepInterval returns how often the background loop evicts expired sessions
func (s *Service) SweepInterval() time.Duration {
	return time.Duration(s.sweepInterval.Load())
}

// SetSweepInterval changes the eviction period of a running loop
func (s *Service) SetSweepInterval(d time.Duration) {
	if d <= 0 || s.sweepInterval.Swap(int64(d)) == int64(d) {
		return
	}
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Timeout returns the current idle timeout
func (s *Service) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// SetTimeout changes the idle timeout for subsequent checks and sweeps
func (s *Service) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.timeout.Store(int64(d))
}

// Create mints a session for username
func (s *Service) Create(username string, permission model.Permission) (Session, error) {
	now := s.clock.Now()
	for {
		sess := Session{
			Token:      s.random.Token(TokenLength),
			Username:   username,
			Permission: permission,
			CreatedAt:  now,
			LastAccess: now,
		}
		if _, loaded := s.sessions.LoadOrStore(sess.Token, sess); !loaded {
			s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
			return sess, nil
		}
	}
}

// Validate reports whether token names a live session. A live session has
// its last access refreshed; an expired one is evicted.
func (s *Service) Validate(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	now := s.clock.Now()
	timeout := s.Timeout()
	expired := false

	sess, ok := s.sessions.Compute(token, func(old Session, loaded bool) (Session, bool) {
		if !loaded {
			return old, false
		}
		if s.clock.Since(old.LastAccess) >= timeout {
			expired = true
			return old, false
		}
		old.LastAccess = now
		return old, true
	})

	if expired {
		s.metrics.SessionsExpired.Inc()
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	}
	return sess, ok
}

// IsValid is Validate without the session
func (s *Service) IsValid(token string) bool {
	_, ok := s.Validate(token)
	return ok
}

// Get is Validate returning ErrInvalidSession for a dead token
func (s *Service) Get(token string) (Session, error) {
	sess, ok := s.Validate(token)
	if !ok {
		return Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Remove deletes the session, if present
func (s *Service) Remove(token string) {
	if _, ok := s.sessions.Delete(token); ok {
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	}
}

// Count returns the number of sessions held, including expired ones not yet swept
func (s *Service) Count() int {
	return s.sessions.Len()
}

// Sweep evicts every expired session and returns how many were removed
func (s *Service) Sweep() int {
	timeout := s.Timeout()

	removed := s.sessions.DeleteIf(func(_ string, sess Session) bool {
		return s.clock.Since(sess.LastAccess) >= timeout
	})

	s.metrics.SessionsExpired.Add(float64(removed))
	s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	if removed > 0 {
		s.logger.Info("evicted expired sessions", slog.Int("removed", removed))
	}
	return removed
}

// Run sweeps expired sessions every SweepInterval until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			ticker.Reset(s.SweepInterval())
		case <-ticker.C:
			s.Sweep()
		}
	}
}
