package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrDeviceUnavailable is returned when no capture device matches the
	// requested media type.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("capture: session already running")

	// ErrClosed is returned by outputs after their device is closed.
	ErrClosed = errors.New("capture: device closed")
)

// Configuration stages reported in ConfigurationError.
const (
	StageConfig         = "config"
	StageInput          = "input"
	StageVideoOutput    = "video-output"
	StageMetadataOutput = "metadata-output"
)

// ConfigurationError is returned when the session cannot be configured:
// invalid settings, or an input or output that fails to attach.
type ConfigurationError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("capture: configure %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
