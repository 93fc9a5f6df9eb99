package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/playerinfo-proxy/internal/config"
	"github.com/mcoot/playerinfo-proxy/internal/dependencies/mocks"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/storage/memory"
	"github.com/mcoot/playerinfo-proxy/internal/transport"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// MockClock drives staleness and session expiry
	MockClock *mocks.MockClock
	// MockRandom issues predictable session tokens
	MockRandom *mocks.MockRandom
	// Backends is the in-process channel backends publish on
	Backends *transport.MemoryChannel
}

// NewTestApp creates an App over memory storage, an in-process channel,
// a mocked clock, predictable tokens and the default credentials
func NewTestApp() *TestApp {
	return NewTestAppWith(config.Default(), auth.DefaultCredentials())
}

// NewTestAppWith is NewTestApp with explicit configuration and credentials
func NewTestAppWith(cfg config.Config, creds auth.Credentials) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	channel := transport.NewMemoryChannel()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app, err := newWithDependencies(cfg, memory.New(), channel, mockClock, mockRandom, creds, logger)
	if err != nil {
		panic(err)
	}
	app.closers = append(app.closers, channel)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Backends:   channel,
	}
}
