package face

import "fmt"

// LandmarkCount is the size of the 68-point facial landmark layout.
const LandmarkCount = 68

// Fixed semantic indices into a LandmarkSet. These are an external contract
// of the landmark model and must not be recomputed.
const (
	LandmarkChin                = 8
	LandmarkNoseTip             = 30
	LandmarkLeftEyeOuterCorner  = 36
	LandmarkRightEyeOuterCorner = 45
	LandmarkLeftMouthCorner     = 48
	LandmarkRightMouthCorner    = 54
)

// Point is a 2D position in oriented frame pixels.
type Point struct {
	X, Y float64
}

// String formats the point the way result logs print it.
func (p Point) String() string {
	return fmt.Sprintf("{%.1f, %.1f}", p.X, p.Y)
}

// LandmarkSet is the ordered 68-point landmark layout for one face.
type LandmarkSet [LandmarkCount]Point

// NamedLandmark pairs a semantic index with its report label.
type NamedLandmark struct {
	Index int
	Label string
}

// ReportedLandmarks lists the landmarks written to the result log, in
// output order. The labels are part of the log format and kept verbatim.
var ReportedLandmarks = [...]NamedLandmark{
	{Index: LandmarkNoseTip, Label: "Nose tip"},
	{Index: LandmarkChin, Label: "Chin"},
	{Index: LandmarkLeftEyeOuterCorner, Label: "Left eye left corner"},
	{Index: LandmarkRightEyeOuterCorner, Label: "Right eye right corner"},
	{Index: LandmarkLeftMouthCorner, Label: "Left Mouth corner"},
	{Index: LandmarkRightMouthCorner, Label: "Right mouth corner"},
}

// PoseAngles is head orientation in degrees.
type PoseAngles struct {
	Pitch float64 `json:"pitch" msgpack:"p"`
	Yaw   float64 `json:"yaw" msgpack:"y"`
	Roll  float64 `json:"roll" msgpack:"r"`
}

// Labels for pose lines, in output order.
const (
	PitchLabel = "pitch"
	YawLabel   = "yaw"
	RollLabel  = "roll"
)

// Result pairs the landmarks and pose of one detected face. Results are
// always ordered like the snapshot boxes they were extracted from.
type Result struct {
	Landmarks LandmarkSet
	Pose      PoseAngles
}

// Named returns the reported landmarks of r in output order.
func (r Result) Named() []Point {
	out := make([]Point, len(ReportedLandmarks))
	for i, nl := range ReportedLandmarks {
		out[i] = r.Landmarks[nl.Index]
	}
	return out
}
