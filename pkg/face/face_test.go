package face

import (
	"math"
	"testing"
	"time"
)

func TestBoundingBox_Center(t *testing.T) {
	tests := []struct {
		name    string
		box     BoundingBox
		expectX float64
		expectY float64
	}{
		{name: "origin box", box: BoundingBox{X: 0, Y: 0, W: 20, H: 10}, expectX: 10, expectY: 5},
		{name: "offset box", box: BoundingBox{X: 100, Y: 50, W: 40, H: 40}, expectX: 120, expectY: 70},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.box.Center()
			if x != tc.expectX || y != tc.expectY {
				t.Errorf("Center: got (%.1f, %.1f), want (%.1f, %.1f)", x, y, tc.expectX, tc.expectY)
			}
		})
	}
}

func TestBoundingBox_Clamp(t *testing.T) {
	b := BoundingBox{X: -10, Y: 90, W: 50, H: 50}.Clamp(100, 100)
	want := BoundingBox{X: 0, Y: 90, W: 40, H: 10}
	if b != want {
		t.Errorf("Clamp: got %+v, want %+v", b, want)
	}
}

func TestSnapshot_IsImmutable(t *testing.T) {
	boxes := []BoundingBox{{X: 1, Y: 2, W: 3, H: 4}}
	s := NewSnapshot(boxes, time.Now())

	boxes[0].X = 99
	if s.Box(0).X != 1 {
		t.Fatal("snapshot shares storage with the constructor argument")
	}

	out := s.Boxes()
	out[0].X = 42
	if s.Box(0).X != 1 {
		t.Fatal("Boxes() leaked internal storage")
	}
}

func TestSnapshot_Empty(t *testing.T) {
	if !EmptySnapshot().Empty() {
		t.Error("EmptySnapshot should be empty")
	}
	if !NewSnapshot(nil, time.Time{}).Empty() {
		t.Error("nil boxes should build an empty snapshot")
	}
	if EmptySnapshot().Version() != 0 {
		t.Error("initial snapshot version should be 0")
	}
}

func TestSnapshot_WithVersionKeepsBoxes(t *testing.T) {
	s := NewSnapshot([]BoundingBox{{X: 1, W: 1, H: 1}, {X: 2, W: 1, H: 1}}, time.Now())
	v := s.WithVersion(7)

	if v.Version() != 7 || s.Version() != 0 {
		t.Errorf("versions: got %d/%d", v.Version(), s.Version())
	}
	if !v.SameBoxes(s) {
		t.Error("WithVersion changed boxes")
	}
}

// The semantic indices are a fixed external contract.
func TestLandmarkIndexContract(t *testing.T) {
	want := map[int]string{
		30: "Nose tip",
		8:  "Chin",
		36: "Left eye left corner",
		45: "Right eye right corner",
		48: "Left Mouth corner",
		54: "Right mouth corner",
	}
	if len(ReportedLandmarks) != len(want) {
		t.Fatalf("got %d reported landmarks, want %d", len(ReportedLandmarks), len(want))
	}
	for _, nl := range ReportedLandmarks {
		if want[nl.Index] != nl.Label {
			t.Errorf("index %d labelled %q, want %q", nl.Index, nl.Label, want[nl.Index])
		}
	}
	if ReportedLandmarks[0].Index != 30 || ReportedLandmarks[1].Index != 8 {
		t.Error("nose tip and chin must lead the report")
	}
}

func TestResult_Named(t *testing.T) {
	var r Result
	r.Landmarks[LandmarkNoseTip] = Point{X: 1, Y: 1}
	r.Landmarks[LandmarkChin] = Point{X: 2, Y: 2}

	named := r.Named()
	if named[0] != (Point{X: 1, Y: 1}) || named[1] != (Point{X: 2, Y: 2}) {
		t.Errorf("Named: got %v", named[:2])
	}
}

func TestTransform_Apply(t *testing.T) {
	// 200x100 sensor, face in the top-left quadrant.
	r := NormRect{X: 0.1, Y: 0.2, W: 0.2, H: 0.4}

	tests := []struct {
		name        string
		orientation Orientation
		want        BoundingBox
	}{
		{
			name:        "landscape right is identity",
			orientation: OrientationLandscapeRight,
			want:        BoundingBox{X: 20, Y: 20, W: 40, H: 40},
		},
		{
			name:        "portrait rotates clockwise",
			orientation: OrientationPortrait,
			// oriented frame is 100x200; x' = 1-0.2-0.4 = 0.4, y' = 0.1
			want: BoundingBox{X: 40, Y: 20, W: 40, H: 40},
		},
		{
			name:        "landscape left rotates 180",
			orientation: OrientationLandscapeLeft,
			want:        BoundingBox{X: 140, Y: 40, W: 40, H: 40},
		},
		{
			name:        "portrait upside down rotates counter-clockwise",
			orientation: OrientationPortraitUpsideDown,
			// x' = 0.2, y' = 1-0.1-0.2 = 0.7
			want: BoundingBox{X: 20, Y: 140, W: 40, H: 40},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Transform{Orientation: tc.orientation}.Apply(r, 200, 100)
			if !boxNear(got, tc.want) {
				t.Errorf("Apply: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestOrientation_RoundTrip(t *testing.T) {
	for _, o := range []Orientation{
		OrientationPortrait, OrientationPortraitUpsideDown,
		OrientationLandscapeLeft, OrientationLandscapeRight,
	} {
		parsed, err := ParseOrientation(o.String())
		if err != nil || parsed != o {
			t.Errorf("ParseOrientation(%q) = %v, %v", o.String(), parsed, err)
		}
	}
	if _, err := ParseOrientation("sideways"); err == nil {
		t.Error("expected error for unknown orientation")
	}
}

func TestFrame_Validate(t *testing.T) {
	ok := Frame{Width: 2, Height: 2, Format: PixelFormatBGRA, Data: make([]byte, 16)}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid frame rejected: %v", err)
	}

	short := ok
	short.Data = make([]byte, 15)
	if err := short.Validate(); err == nil {
		t.Error("short buffer accepted")
	}

	rgb := ok
	rgb.Format = "RGB"
	if err := rgb.Validate(); err == nil {
		t.Error("non-BGRA frame accepted")
	}
}

func boxNear(a, b BoundingBox) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.W-b.W) < eps && math.Abs(a.H-b.H) < eps
}
