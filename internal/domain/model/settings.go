package model

import "time"

// Settings holds user-adjustable runtime settings.
type Settings struct {
	MaxTraces       int
	RetentionHours  int
	ValidateTimeout time.Duration
}

// DefaultSettings returns the settings used when nothing has been stored.
func DefaultSettings() Settings {
	return Settings{
		MaxTraces:       1000,
		RetentionHours:  24,
		ValidateTimeout: 10 * time.Second,
	}
}

// Retention returns RetentionHours as a duration.
func (s Settings) Retention() time.Duration {
	return time.Duration(s.RetentionHours) * time.Hour
}
