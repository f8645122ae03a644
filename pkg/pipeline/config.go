package pipeline

import "time"

// Config holds video pipeline tuning.
type Config struct {
	// ExtractTimeout bounds a single extraction call. Zero means the call is
	// only bounded by Stop.
	ExtractTimeout time.Duration `json:"extract_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ExtractTimeout: 2 * time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c Config) Validate() []string {
	var errs []string
	if c.ExtractTimeout < 0 {
		errs = append(errs, "extract_timeout must not be negative")
	}
	return errs
}
