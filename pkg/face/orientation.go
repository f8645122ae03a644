package face

import "fmt"

// Orientation is the output orientation applied to the native landscape
// sensor image. Frames and metadata must use the same value so boxes line
// up with pixels.
type Orientation int

const (
	// OrientationLandscapeRight is the native sensor orientation (no rotation).
	OrientationLandscapeRight Orientation = iota
	// OrientationPortrait rotates the sensor image 90° clockwise.
	OrientationPortrait
	// OrientationLandscapeLeft rotates 180°.
	OrientationLandscapeLeft
	// OrientationPortraitUpsideDown rotates 90° counter-clockwise.
	OrientationPortraitUpsideDown
)

// ParseOrientation maps a config string to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "portrait", "":
		return OrientationPortrait, nil
	case "portrait-upside-down":
		return OrientationPortraitUpsideDown, nil
	case "landscape-right":
		return OrientationLandscapeRight, nil
	case "landscape-left":
		return OrientationLandscapeLeft, nil
	}
	return 0, fmt.Errorf("face: unknown orientation %q", s)
}

func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationPortraitUpsideDown:
		return "portrait-upside-down"
	case OrientationLandscapeRight:
		return "landscape-right"
	case OrientationLandscapeLeft:
		return "landscape-left"
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// SwapsAxes reports whether the orientation exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o == OrientationPortrait || o == OrientationPortraitUpsideDown
}

// OrientedSize returns the frame size after rotating a w x h sensor image.
func (o Orientation) OrientedSize(w, h int) (int, int) {
	if o.SwapsAxes() {
		return h, w
	}
	return w, h
}

// Transform maps normalized sensor-space rectangles into oriented frame
// pixels. It is the single coordinate conversion shared by the video and
// metadata paths.
type Transform struct {
	Orientation Orientation
}

// Rotate applies the orientation to a normalized rectangle.
func (t Transform) Rotate(r NormRect) NormRect {
	switch t.Orientation {
	case OrientationPortrait:
		// (u, v) -> (1-v, u)
		return NormRect{X: 1 - r.Y - r.H, Y: r.X, W: r.H, H: r.W}
	case OrientationLandscapeLeft:
		return NormRect{X: 1 - r.X - r.W, Y: 1 - r.Y - r.H, W: r.W, H: r.H}
	case OrientationPortraitUpsideDown:
		// (u, v) -> (v, 1-u)
		return NormRect{X: r.Y, Y: 1 - r.X - r.W, W: r.H, H: r.W}
	default:
		return r
	}
}

// Apply converts a normalized sensor rectangle from a srcW x srcH sensor
// into a pixel box in the oriented frame, clamped to the frame bounds.
func (t Transform) Apply(r NormRect, srcW, srcH int) BoundingBox {
	w, h := t.Orientation.OrientedSize(srcW, srcH)
	o := t.Rotate(r)
	box := BoundingBox{
		X: o.X * float64(w),
		Y: o.Y * float64(h),
		W: o.W * float64(w),
		H: o.H * float64(h),
	}
	return box.Clamp(w, h)
}
