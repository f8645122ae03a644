// Package capture owns the camera session: device acquisition, stream
// configuration and the two delivery goroutines feeding the video and
// metadata pipelines.
package capture

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// MediaType selects the kind of capture device.
type MediaType string

// MediaVideo is the only media type the session captures.
const MediaVideo MediaType = "video"

// Config holds the session configuration.
type Config struct {
	// === Stream ===
	MediaType   MediaType        `json:"media_type"`
	PixelFormat face.PixelFormat `json:"pixel_format"`
	Preset      string           `json:"preset"`      // resolution tier, see presets.go
	Orientation string           `json:"orientation"` // applied to frames and metadata alike

	// DiscardLateFrames keeps only the newest frame when delivery falls
	// behind. When false, capture blocks until the previous frame has been
	// handled.
	DiscardLateFrames bool `json:"discard_late_frames"`

	// === Device ===
	DeviceIndex int `json:"device_index"`

	// === Face metadata ===
	ModelPath         string        `json:"model_path"`
	ConfidenceThresh  float64       `json:"confidence_thresh"`
	DetectionInterval time.Duration `json:"detection_interval"`
}

// DefaultConfig returns the standard session: BGRA video at the high
// preset, portrait orientation, late frames discarded.
func DefaultConfig() Config {
	return Config{
		MediaType:         MediaVideo,
		PixelFormat:       face.PixelFormatBGRA,
		Preset:            PresetHigh,
		Orientation:       face.OrientationPortrait.String(),
		DiscardLateFrames: true,

		DeviceIndex: 0,

		ModelPath:         "models/face_detection_yunet.onnx",
		ConfidenceThresh:  0.6,
		DetectionInterval: 100 * time.Millisecond,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.MediaType != MediaVideo {
		errors = append(errors, "media_type must be video")
	}
	if c.PixelFormat != face.PixelFormatBGRA {
		errors = append(errors, "pixel_format must be BGRA")
	}
	if GetPreset(c.Preset) == nil {
		errors = append(errors, fmt.Sprintf("preset must be one of %v", PresetNames()))
	}
	if _, err := face.ParseOrientation(c.Orientation); err != nil {
		errors = append(errors, "orientation must be portrait, portrait-upside-down, landscape-right or landscape-left")
	}
	if c.DeviceIndex < 0 {
		errors = append(errors, "device_index must not be negative")
	}
	if c.ConfidenceThresh < 0 || c.ConfidenceThresh > 1 {
		errors = append(errors, "confidence_thresh must be between 0 and 1")
	}
	if c.DetectionInterval < 10*time.Millisecond {
		errors = append(errors, "detection_interval must be at least 10ms")
	}

	return errors
}

// Resolution returns the capture resolution for the configured preset.
func (c *Config) Resolution() Resolution {
	if r := GetPreset(c.Preset); r != nil {
		return *r
	}
	return Presets()[PresetHigh]
}

// OrientationValue parses Orientation, defaulting to portrait.
func (c *Config) OrientationValue() face.Orientation {
	o, err := face.ParseOrientation(c.Orientation)
	if err != nil {
		return face.OrientationPortrait
	}
	return o
}
