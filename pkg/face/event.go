package face

import "time"

// ObjectKind tags a raw metadata object. Metadata outputs may report more
// than faces; only KindFace is turned into a bounding box.
type ObjectKind int

const (
	KindUnknown ObjectKind = iota
	KindFace
	KindBody
)

func (k ObjectKind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindBody:
		return "body"
	default:
		return "unknown"
	}
}

// NormRect is a rectangle normalized to 0-1 in the unrotated sensor frame.
type NormRect struct {
	X, Y float64
	W, H float64
}

// RawObject is one observation as the metadata output reports it.
type RawObject struct {
	Kind       ObjectKind
	Bounds     NormRect
	Confidence float64
}

// DetectionEvent is one delivery from the metadata output. It may carry any
// number of objects, including zero.
type DetectionEvent struct {
	Seq       uint64
	Timestamp time.Time

	// SourceWidth and SourceHeight are the unrotated sensor dimensions the
	// normalized bounds refer to.
	SourceWidth  int
	SourceHeight int

	Objects []RawObject
}
