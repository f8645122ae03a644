package face

import (
	"image"
	"math"
)

// BoundingBox is an axis-aligned face rectangle in oriented frame pixels.
// X, Y is the top-left corner.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of the box
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Area returns the area of the box
func (b BoundingBox) Area() float64 {
	return b.W * b.H
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Rect rounds the box to integer pixel coordinates.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.X)),
		int(math.Round(b.Y)),
		int(math.Round(b.X+b.W)),
		int(math.Round(b.Y+b.H)),
	)
}

// Clamp restricts the box to a width x height frame.
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	x0 := clamp(b.X, 0, float64(width))
	y0 := clamp(b.Y, 0, float64(height))
	x1 := clamp(b.X+b.W, 0, float64(width))
	y1 := clamp(b.Y+b.H, 0, float64(height))
	return BoundingBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
