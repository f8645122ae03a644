package capture

import (
	"context"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Discoverer finds the default device for a media type.
type Discoverer interface {
	Default(media MediaType) (Device, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(media MediaType) (Device, error)

// Default calls f.
func (f DiscovererFunc) Default(media MediaType) (Device, error) {
	return f(media)
}

// Device is an acquired capture device. The session attaches the input and
// both outputs in order, then reads from the outputs on separate goroutines.
// Close must unblock any pending Read.
type Device interface {
	Name() string
	AttachInput(cfg Config) error
	AttachVideoOutput(cfg Config) (VideoOutput, error)
	AttachMetadataOutput(cfg Config) (MetadataOutput, error)
	Close() error
}

// VideoOutput delivers frames already rotated to the configured orientation
// in BGRA. ReadFrame blocks until a frame is available, ctx is done or the
// device is closed.
type VideoOutput interface {
	ReadFrame(ctx context.Context) (face.Frame, error)
}

// MetadataOutput delivers face detection events with bounds normalized to
// the unrotated sensor frame.
type MetadataOutput interface {
	ReadEvent(ctx context.Context) (face.DetectionEvent, error)
}
