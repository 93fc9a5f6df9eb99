// Package config loads process configuration: defaults, then an optional
// YAML file named by PINFO_CONFIG, then PINFO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/playerinfo-proxy/internal/api"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/services/playerdata"
	"github.com/mcoot/playerinfo-proxy/internal/services/session"
	redisstorage "github.com/mcoot/playerinfo-proxy/internal/storage/redis"
	"github.com/mcoot/playerinfo-proxy/internal/transport"
	"github.com/mcoot/playerinfo-proxy/internal/wire"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "PINFO_"

// EnvConfigPath names the variable holding the YAML config file path
const EnvConfigPath = EnvPrefix + "CONFIG"

// Storage and transport types
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// ErrConfigLoad means the configuration could not be read or is invalid
var ErrConfigLoad = errors.New("failed to load configuration")

// HTTPConfig holds the listener and static page settings
type HTTPConfig struct {
	Server api.ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	// StaticDir is served behind the login gate when set
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
}

// StorageConfig selects and configures the player store
type StorageConfig struct {
	Type  string              `yaml:"type" env:"TYPE"`
	Redis redisstorage.Config `yaml:"redis" envPrefix:"REDIS_"`
}

// TransportConfig selects and configures the backend channel
type TransportConfig struct {
	Type    string               `yaml:"type" env:"TYPE"`
	NATS    transport.NATSConfig `yaml:"nats" envPrefix:"NATS_"`
	Refresh transport.Config     `yaml:"refresh" envPrefix:"REFRESH_"`
}

// Config is the complete process configuration
type Config struct {
	// DataDir holds passwd.yml
	DataDir  string `yaml:"data_dir" env:"DATA_DIR"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	Metrics  bool   `yaml:"metrics" env:"METRICS"`

	HTTP       HTTPConfig        `yaml:"http" envPrefix:"HTTP_"`
	Storage    StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	Transport  TransportConfig   `yaml:"transport" envPrefix:"TRANSPORT_"`
	Wire       wire.Config       `yaml:"wire" envPrefix:"WIRE_"`
	PlayerData playerdata.Config `yaml:"player_data" envPrefix:"PLAYER_DATA_"`
	Session    session.Config    `yaml:"session" envPrefix:"SESSION_"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		DataDir:  "data",
		LogLevel: "info",
		Metrics:  true,
		HTTP: HTTPConfig{
			Server: api.DefaultServerConfig(),
		},
		Storage: StorageConfig{
			Type:  StorageMemory,
			Redis: redisstorage.DefaultConfig(),
		},
		Transport: TransportConfig{
			Type:    TransportMemory,
			NATS:    transport.DefaultNATSConfig(),
			Refresh: transport.DefaultConfig(),
		},
		Wire:       wire.DefaultConfig(),
		PlayerData: playerdata.DefaultConfig(),
		Session:    session.DefaultConfig(),
	}
}

// CredentialsPath is the location of passwd.yml
func (c Config) CredentialsPath() string {
	return filepath.Join(c.DataDir, auth.CredentialsFileName)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the selectors and limits
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("storage type must be %q or %q, got %q", StorageMemory, StorageRedis, c.Storage.Type)
	}
	switch c.Transport.Type {
	case TransportMemory, TransportNATS:
	default:
		return fmt.Errorf("transport type must be %q or %q, got %q", TransportMemory, TransportNATS, c.Transport.Type)
	}
	if err := c.Wire.Validate(); err != nil {
		return err
	}
	if c.PlayerData.CleanupInterval <= 0 || c.PlayerData.MaxAge <= 0 {
		return errors.New("player data cleanup interval and max age must be positive")
	}
	if c.Transport.Refresh.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}

// Load reads configuration from the process environment
func Load() (Config, error) {
	return LoadWith(os.Getenv(EnvConfigPath), env.ToMap(os.Environ()))
}

// LoadWith layers the YAML file at path (if any) and then environ over the
// defaults. On error the defaults are returned alongside it.
func LoadWith(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Default(), fmt.Errorf("%w: %v", ErrConfigLoad, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("%w: %s: %v", ErrConfigLoad, path, err)
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	cfg.Storage.Type = strings.ToLower(cfg.Storage.Type)
	cfg.Transport.Type = strings.ToLower(cfg.Transport.Type)

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}
	return cfg, nil
}
