package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// CredentialsFileName is the name of the credentials file inside the data directory
const CredentialsFileName = "passwd.yml"

// ErrConfigLoad means the credentials file could not be read or parsed
var ErrConfigLoad = errors.New("failed to load credentials file")

const defaultCredentialsFile = `# Player info proxy login configuration
# Generated on first start.
# Default accounts: admin/admin123 and viewer/view123
# Change the default passwords before exposing the proxy.
# Passwords may be plaintext or bcrypt hashes (see "pinfo passwd hash").

authentication:
  enabled: true                   # Enable authentication
  session-timeout: 1440           # Session timeout in minutes (24 hours)
  max-login-attempts: 5           # Maximum login attempts before lockout
  lockout-duration: 30            # Lockout duration in minutes

users:
  - username: admin
    password: "admin123"
    permission: admin

  - username: viewer
    password: "view123"
    permission: view

# Permission levels:
# admin - Full access
# view - Read-only access
`

// Credentials is the parsed content of the credentials file
type Credentials struct {
	Settings Settings
	Users    []model.Credential
}

// DefaultCredentials returns the built-in accounts and settings
func DefaultCredentials() Credentials {
	return Credentials{
		Settings: DefaultSettings(),
		Users: []model.Credential{
			{Username: "admin", Password: "admin123", Permission: model.PermissionAdmin},
			{Username: "viewer", Password: "view123", Permission: model.PermissionView},
		},
	}
}

type credentialsFile struct {
	Authentication struct {
		Enabled          *bool `yaml:"enabled"`
		SessionTimeout   *int  `yaml:"session-timeout"`
		MaxLoginAttempts *int  `yaml:"max-login-attempts"`
		LockoutDuration  *int  `yaml:"lockout-duration"`
	} `yaml:"authentication"`
	Users []struct {
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		Permission string `yaml:"permission"`
	} `yaml:"users"`
}

// EnsureCredentialsFile writes the default credentials file if path does
// not exist yet, reporting whether it did so
func EnsureCredentialsFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create credentials directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultCredentialsFile), 0o600); err != nil {
		return false, fmt.Errorf("write default credentials: %w", err)
	}
	return true, nil
}

// LoadCredentialsFile reads and parses the credentials file at path.
// Missing or non-positive settings take their defaults.
func LoadCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}
	return ParseCredentials(data)
}

// ParseCredentials parses credentials file content
func ParseCredentials(data []byte) (Credentials, error) {
	var f credentialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	creds := Credentials{Settings: DefaultSettings()}
	a := f.Authentication
	if a.Enabled != nil {
		creds.Settings.Enabled = *a.Enabled
	}
	if a.SessionTimeout != nil && *a.SessionTimeout > 0 {
		creds.Settings.SessionTimeout = time.Duration(*a.SessionTimeout) * time.Minute
	}
	if a.MaxLoginAttempts != nil && *a.MaxLoginAttempts > 0 {
		creds.Settings.MaxLoginAttempts = *a.MaxLoginAttempts
	}
	if a.LockoutDuration != nil && *a.LockoutDuration > 0 {
		creds.Settings.LockoutDuration = time.Duration(*a.LockoutDuration) * time.Minute
	}

	for _, u := range f.Users {
		if u.Username == "" {
			continue
		}
		perm := model.Permission(u.Permission)
		if perm == "" {
			perm = model.PermissionView
		}
		creds.Users = append(creds.Users, model.Credential{
			Username:   u.Username,
			Password:   u.Password,
			Permission: perm,
		})
	}
	return creds, nil
}
