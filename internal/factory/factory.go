package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/playerinfo-proxy/internal/api"
	"github.com/mcoot/playerinfo-proxy/internal/config"
	"github.com/mcoot/playerinfo-proxy/internal/dependencies/clock"
	"github.com/mcoot/playerinfo-proxy/internal/dependencies/random"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/services/playerdata"
	"github.com/mcoot/playerinfo-proxy/internal/services/session"
	"github.com/mcoot/playerinfo-proxy/internal/storage"
	"github.com/mcoot/playerinfo-proxy/internal/storage/memory"
	redisstorage "github.com/mcoot/playerinfo-proxy/internal/storage/redis"
	"github.com/mcoot/playerinfo-proxy/internal/transport"
	"github.com/mcoot/playerinfo-proxy/internal/web"
	"github.com/mcoot/playerinfo-proxy/internal/wire"
)

// App contains all wired application components
type App struct {
	Config config.Config
	Logger *slog.Logger

	// Storage and transport
	Store   storage.PlayerStore
	Channel transport.Channel

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Metrics *metrics.Metrics
	Codec   *wire.Codec

	// Services
	PlayerData *playerdata.Service
	Sessions   *session.Service
	Auth       *auth.Service
	Transport  *transport.Service

	closers []io.Closer
}

// New creates a new application with all dependencies wired from cfg.
// The credentials file is seeded and read from cfg.DataDir.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer

	var store storage.PlayerStore
	switch cfg.Storage.Type {
	case config.StorageMemory, "":
		store = memory.New()
	case config.StorageRedis:
		redisStore, err := redisstorage.New(cfg.Storage.Redis)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be 'memory' or 'redis'", cfg.Storage.Type)
	}

	var channel transport.Channel
	switch cfg.Transport.Type {
	case config.TransportMemory, "":
		mc := transport.NewMemoryChannel()
		channel = mc
		closers = append(closers, mc)
	case config.TransportNATS:
		nc, err := transport.NewNATSChannel(cfg.Transport.NATS, logger)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		channel = nc
		closers = append(closers, nc)
	default:
		closeAll(closers)
		return nil, fmt.Errorf("invalid transport type %q: must be 'memory' or 'nats'", cfg.Transport.Type)
	}

	creds := auth.LoadCredentials(cfg.CredentialsPath(), logger)

	app, err := newWithDependencies(cfg, store, channel, clock.New(), random.New(), creds, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg config.Config,
	store storage.PlayerStore,
	channel transport.Channel,
	clk clock.Clock,
	rnd random.Random,
	creds auth.Credentials,
	logger *slog.Logger,
) (*App, error) {
	codec, err := wire.NewCodec(cfg.Wire)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	players := playerdata.New(store, clk, logger, m, cfg.PlayerData)
	sessions := session.New(clk, rnd, logger, m, cfg.Session)
	authService := auth.New(sessions, clk, logger, m, creds)
	transportService := transport.NewService(channel, codec, players, logger, m, cfg.Transport.Refresh)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Channel:    channel,
		Clock:      clk,
		Random:     rnd,
		Metrics:    m,
		Codec:      codec,
		PlayerData: players,
		Sessions:   sessions,
		Auth:       authService,
		Transport:  transportService,
	}, nil
}

// Handler combines the JSON API and the gated pages
func (a *App) Handler() http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:        a.Logger,
		Metrics:       a.Metrics,
		AuthService:   a.Auth,
		PlayerData:    a.PlayerData,
		Refresher:     a.Transport,
		ExposeMetrics: a.Config.Metrics,
	})

	webRouter := web.NewRouter(web.RouterConfig{
		Logger:      a.Logger,
		AuthService: a.Auth,
		StaticDir:   a.Config.HTTP.StaticDir,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", apiRouter)
	mux.Handle("/", webRouter)
	return mux
}

// Run starts the background loops (staleness sweep, session sweep,
// transport) and blocks until ctx is cancelled or one of them fails
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.PlayerData.Run(ctx) })
	g.Go(func() error { return a.Sessions.Run(ctx) })
	g.Go(func() error { return a.Transport.Run(ctx) })

	err := g.Wait()
	a.Transport.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Reload applies a freshly loaded configuration to the running services
// and re-reads the credentials file from the new data directory. Wire
// limits, staleness, refresh and session sweep settings take effect
// immediately; listen address, storage and transport selection need a
// restart. Rejected wire limits leave the current ones in force.
func (a *App) Reload(cfg config.Config) error {
	var errs []error
	if err := a.Codec.SetConfig(cfg.Wire); err != nil {
		errs = append(errs, fmt.Errorf("wire limits: %w", err))
		cfg.Wire = a.Codec.Config()
	}
	a.PlayerData.SetConfig(cfg.PlayerData)
	a.Transport.SetConfig(cfg.Transport.Refresh)
	a.Sessions.SetSweepInterval(cfg.Session.SweepInterval)

	a.Config.Wire = cfg.Wire
	a.Config.PlayerData = cfg.PlayerData
	a.Config.Transport.Refresh = cfg.Transport.Refresh
	a.Config.Session.SweepInterval = a.Sessions.SweepInterval()
	a.Config.DataDir = cfg.DataDir

	a.Logger.Info("configuration reloaded",
		slog.Int("compress_threshold", cfg.Wire.CompressThreshold),
		slog.Duration("max_age", cfg.PlayerData.MaxAge),
		slog.Duration("refresh_interval", cfg.Transport.Refresh.RefreshInterval),
		slog.String("data_dir", cfg.DataDir),
	)

	if err := a.ReloadCredentials(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReloadCredentials re-reads passwd.yml from the current data directory
func (a *App) ReloadCredentials() error {
	return a.Auth.Reload(a.Config.CredentialsPath())
}

// Close releases the storage and transport connections
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
