// Package auth verifies logins against the credentials file, counts failed
// attempts and locks accounts that fail too often.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/clock"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/session"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrAccountLocked      = errors.New("account locked")
)

// Service handles logins and owns the credential set
type Service struct {
	sessions *session.Service
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	settings Settings
	users    map[string]model.Credential

	lockouts *lockouts
}

// New creates an auth service over the given credentials
func New(
	sessions *session.Service,
	clock clock.Clock,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	creds Credentials,
) *Service {
	s := &Service{
		sessions: sessions,
		clock:    clock,
		logger:   logger.With(slog.String("component", "auth")),
		metrics:  metrics,
		lockouts: newLockouts(),
	}
	s.Apply(creds)
	return s
}

// LoadCredentials prepares and reads the credentials file at path, falling
// back to the built-in defaults when it cannot be read
func LoadCredentials(path string, logger *slog.Logger) Credentials {
	created, err := EnsureCredentialsFile(path)
	if err != nil {
		logger.Error("could not create default credentials file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	} else if created {
		logger.Info("created default credentials file", slog.String("path", path))
	}

	creds, err := LoadCredentialsFile(path)
	if err != nil {
		logger.Error("falling back to default credentials",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return DefaultCredentials()
	}
	return creds
}

// Apply swaps in a new credential set and pushes the session timeout into
// the session store. Existing sessions and lockout state are kept.
func (s *Service) Apply(creds Credentials) {
	users := make(map[string]model.Credential, len(creds.Users))
	for _, u := range creds.Users {
		if detectScheme(u.Password) == schemePlaintext {
			s.logger.Warn("credential stored in plaintext",
				slog.String("username", u.Username),
			)
		}
		users[u.Username] = u
	}

	s.mu.Lock()
	s.settings = creds.Settings
	s.users = users
	s.mu.Unlock()

	s.sessions.SetTimeout(creds.Settings.SessionTimeout)
}

// Reload re-reads the credentials file at path. On failure the current
// credentials stay in force and the error is returned.
func (s *Service) Reload(path string) error {
	creds, err := LoadCredentialsFile(path)
	if err != nil {
		s.logger.Error("credentials reload failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.Apply(creds)
	s.logger.Info("credentials reloaded",
		slog.String("path", path),
		slog.Int("users", len(creds.Users)),
	)
	return nil
}

// Settings returns the current authentication settings
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Enabled reports whether the API requires a login
func (s *Service) Enabled() bool {
	return s.Settings().Enabled
}

func (s *Service) lookup(username string) (model.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// Login verifies username and password and mints a session.
// A locked account is refused with a *LockedError before the password is
// looked at. Unknown usernames are refused without counting a failure.
func (s *Service) Login(ctx context.Context, username, password string) (session.Session, error) {
	if username == "" || password == "" {
		return session.Session{}, ErrMissingCredentials
	}

	now := s.clock.Now()
	settings := s.Settings()

	if remaining := s.lockouts.check(username, now); remaining > 0 {
		s.metrics.LoginAttempts.WithLabelValues(metrics.LoginLocked).Inc()
		return session.Session{}, &LockedError{Remaining: remaining}
	}

	user, ok := s.lookup(username)
	if !ok {
		s.metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		s.logger.Debug("login for unknown user", slog.String("username", username))
		return session.Session{}, ErrInvalidCredentials
	}

	if !checkPassword(user.Password, password) {
		remaining, justLocked := s.lockouts.fail(username, now, settings.MaxLoginAttempts, settings.LockoutDuration)
		if remaining > 0 {
			s.metrics.LoginAttempts.WithLabelValues(metrics.LoginLocked).Inc()
			if justLocked {
				s.logger.Info("account locked after repeated failures",
					slog.String("username", username),
					slog.Duration("lockout", remaining),
				)
			}
			return session.Session{}, &LockedError{Remaining: remaining, JustLocked: justLocked}
		}
		s.metrics.LoginAttempts.WithLabelValues(metrics.LoginInvalid).Inc()
		return session.Session{}, ErrInvalidCredentials
	}

	s.lockouts.clear(username)
	sess, err := s.sessions.Create(user.Username, user.Permission)
	if err != nil {
		return session.Session{}, err
	}

	s.metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	s.logger.Info("login succeeded",
		slog.String("username", user.Username),
		slog.String("permission", string(user.Permission)),
	)
	return sess, nil
}

// FailedAttempts returns the failures counted against username since its
// last successful login or lock lapse
func (s *Service) FailedAttempts(username string) int {
	return s.lockouts.failures(username)
}

// Validate resolves a session token, refreshing its expiry
func (s *Service) Validate(token string) (session.Session, bool) {
	return s.sessions.Validate(token)
}

// Logout ends the session for token
func (s *Service) Logout(token string) {
	s.sessions.Remove(token)
}
