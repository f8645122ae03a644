// Package face holds the data model shared by every stage of the capture
// pipeline: frames, face bounding boxes, detection snapshots and the
// landmark/pose results produced for them.
package face

import (
	"fmt"
	"image"
	"time"
)

// PixelFormat identifies the memory layout of Frame.Data.
type PixelFormat string

// PixelFormatBGRA is 8 bits per channel, blue first, alpha last.
// It is the only format the pipeline accepts.
const PixelFormatBGRA PixelFormat = "BGRA"

// BytesPerPixel returns the pixel size for the format.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatBGRA:
		return 4
	default:
		return 0
	}
}

// Frame is one timestamped image buffer delivered by the video output.
//
// A Frame is owned by the video pipeline for the duration of a single
// delivery and then handed to the renderer. Data MUST NOT be modified after
// the frame has been delivered; it is shared by reference with the
// extraction worker.
type Frame struct {
	// Seq is assigned by the session in delivery order, starting at 1.
	Seq uint64

	// Timestamp is the capture time reported by the device.
	Timestamp time.Time

	// Width and Height are post-orientation pixel dimensions.
	Width  int
	Height int

	// Stride is the number of bytes per row. Zero means tightly packed.
	Stride int

	Format PixelFormat
	Data   []byte
}

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// RowBytes returns the effective stride.
func (f Frame) RowBytes() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * f.Format.BytesPerPixel()
}

// Validate checks the frame geometry against its buffer.
func (f Frame) Validate() error {
	if f.Format != PixelFormatBGRA {
		return fmt.Errorf("face: unsupported pixel format %q", f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("face: invalid frame size %dx%d", f.Width, f.Height)
	}
	if need := f.RowBytes() * f.Height; len(f.Data) < need {
		return fmt.Errorf("face: frame buffer too small: %d bytes, need %d", len(f.Data), need)
	}
	return nil
}
