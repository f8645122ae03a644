package landmark

import (
	"math"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// neutralNoseRatio is where the nose tip sits between the eye line (0) and
// the mouth line (1) on a face looking straight at the camera.
const neutralNoseRatio = 0.6

// EstimatePose derives head pose in degrees from the semantic landmarks.
//
// Roll is the tilt of the eye line. Yaw and pitch come from how far the nose
// tip moves off its neutral position once roll is removed: positive yaw
// means the nose points to the image right, positive pitch means it points
// up. This is a coarse estimate used only when the landmark service omits
// pose.
func EstimatePose(l face.LandmarkSet) face.PoseAngles {
	le := l[face.LandmarkLeftEyeOuterCorner]
	re := l[face.LandmarkRightEyeOuterCorner]
	lm := l[face.LandmarkLeftMouthCorner]
	rm := l[face.LandmarkRightMouthCorner]
	nose := l[face.LandmarkNoseTip]

	eyeDX, eyeDY := re.X-le.X, re.Y-le.Y
	eyeDist := math.Hypot(eyeDX, eyeDY)
	if eyeDist == 0 {
		return face.PoseAngles{}
	}
	roll := math.Atan2(eyeDY, eyeDX)

	eyeMid := mid(le, re)
	mouthMid := mid(lm, rm)

	// Undo roll around the eye midpoint.
	n := derotate(nose, eyeMid, roll)
	m := derotate(mouthMid, eyeMid, roll)

	faceHeight := m.Y
	if faceHeight <= 0 {
		return face.PoseAngles{Roll: degrees(roll)}
	}

	yaw := math.Asin(clampUnit(n.X / (eyeDist / 2)))
	pitch := math.Asin(clampUnit(2 * (neutralNoseRatio - n.Y/faceHeight)))

	return face.PoseAngles{
		Pitch: degrees(pitch),
		Yaw:   degrees(yaw),
		Roll:  degrees(roll),
	}
}

func mid(a, b face.Point) face.Point {
	return face.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// derotate returns p relative to origin, rotated by -angle.
func derotate(p, origin face.Point, angle float64) face.Point {
	x, y := p.X-origin.X, p.Y-origin.Y
	sin, cos := math.Sincos(-angle)
	return face.Point{X: x*cos - y*sin, Y: x*sin + y*cos}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
