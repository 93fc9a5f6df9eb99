package auth

import "time"

// Settings are the authentication block of the credentials file
type Settings struct {
	Enabled          bool
	SessionTimeout   time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// DefaultSettings returns the settings used when the file omits them
func DefaultSettings() Settings {
	return Settings{
		Enabled:          true,
		SessionTimeout:   1440 * time.Minute,
		MaxLoginAttempts: 5,
		LockoutDuration:  30 * time.Minute,
	}
}
