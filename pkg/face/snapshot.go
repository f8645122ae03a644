package face

import "time"

// Snapshot is the immutable set of face regions known at one point in time.
//
// A Snapshot is a value: the box slice is copied on construction and never
// handed out again, so a published snapshot cannot be mutated by anyone.
// Replacing it is the only way to change what readers observe.
type Snapshot struct {
	version uint64
	at      time.Time
	boxes   []BoundingBox
}

// NewSnapshot builds a snapshot from boxes in detection order.
// A nil or empty slice yields the empty snapshot.
func NewSnapshot(boxes []BoundingBox, at time.Time) Snapshot {
	s := Snapshot{at: at}
	if len(boxes) > 0 {
		s.boxes = make([]BoundingBox, len(boxes))
		copy(s.boxes, boxes)
	}
	return s
}

// EmptySnapshot means "no faces currently visible".
func EmptySnapshot() Snapshot {
	return Snapshot{}
}

// WithVersion returns a copy stamped with v. The box storage is shared,
// which is safe because it is never written after construction.
func (s Snapshot) WithVersion(v uint64) Snapshot {
	s.version = v
	return s
}

// Version is the publish sequence number. Zero for the initial empty value.
func (s Snapshot) Version() uint64 { return s.version }

// At is the detection timestamp the snapshot was built from.
func (s Snapshot) At() time.Time { return s.at }

// Len returns the number of faces.
func (s Snapshot) Len() int { return len(s.boxes) }

// Empty reports whether no faces are present.
func (s Snapshot) Empty() bool { return len(s.boxes) == 0 }

// Box returns the i-th face box.
func (s Snapshot) Box(i int) BoundingBox { return s.boxes[i] }

// Boxes returns a copy of the face boxes in detection order.
func (s Snapshot) Boxes() []BoundingBox {
	if len(s.boxes) == 0 {
		return nil
	}
	out := make([]BoundingBox, len(s.boxes))
	copy(out, s.boxes)
	return out
}

// SameBoxes reports whether two snapshots carry identical boxes in the same order.
func (s Snapshot) SameBoxes(o Snapshot) bool {
	if len(s.boxes) != len(o.boxes) {
		return false
	}
	for i := range s.boxes {
		if s.boxes[i] != o.boxes[i] {
			return false
		}
	}
	return true
}
