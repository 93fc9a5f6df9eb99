package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string `env:"URL" envDefault:"http://localhost:8080"`
	Token     string `env:"TOKEN"`
	TokenFile string `env:"TOKEN_FILE"`
	Output    string `env:"OUTPUT" envDefault:"text"`
	Verbose   bool

	// Backend commands publish over NATS
	NATSURL     string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSChannel string `env:"NATS_CHANNEL" envDefault:"playerinfo"`
}

// DefaultConfig returns a Config with defaults overlaid by PINFO_* variables
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PINFO_"}); err != nil {
		cfg = &Config{
			ServerURL:   "http://localhost:8080",
			Output:      "text",
			NATSURL:     "nats://127.0.0.1:4222",
			NATSChannel: "playerinfo",
		}
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	return cfg
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

// ClearToken forgets the saved token
func (c *Config) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pinfo/token"
	}
	return filepath.Join(home, ".pinfo", "token")
}
