package landmark

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Mock implements Extractor for demos and tests.
// Behaviour can be replaced via ExtractFunc.
type Mock struct {
	// ExtractFunc is called when Extract is invoked.
	// If nil, Template landmarks are placed inside each box.
	ExtractFunc func(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error)

	// Delay simulates extraction latency. Extract returns ctx.Err() if ctx
	// ends first.
	Delay time.Duration

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Extract invocation.
type MockCall struct {
	FrameSeq uint64
	Boxes    []face.BoundingBox
	Time     time.Time
}

// NewMock creates a mock that places template landmarks.
func NewMock() *Mock {
	return &Mock{}
}

// Extract implements Extractor.
func (m *Mock) Extract(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{
		FrameSeq: frame.Seq,
		Boxes:    append([]face.BoundingBox(nil), boxes...),
		Time:     time.Now(),
	})
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, frame, boxes)
	}

	results := make([]face.Result, len(boxes))
	for i, b := range boxes {
		results[i].Landmarks = Template(b)
		results[i].Pose = EstimatePose(results[i].Landmarks)
	}
	return results, nil
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Extract invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// Template returns a frontal face layout scaled into b. The semantic points
// are placed so EstimatePose reads zero pitch, yaw and roll; the remaining
// points sit on an ellipse inscribed in the box.
func Template(b face.BoundingBox) face.LandmarkSet {
	var l face.LandmarkSet

	cx, cy := b.Center()
	for i := range l {
		theta := 2 * math.Pi * float64(i) / face.LandmarkCount
		l[i] = face.Point{
			X: cx + 0.45*b.W*math.Cos(theta),
			Y: cy + 0.45*b.H*math.Sin(theta),
		}
	}

	at := func(u, v float64) face.Point {
		return face.Point{X: b.X + u*b.W, Y: b.Y + v*b.H}
	}
	l[face.LandmarkLeftEyeOuterCorner] = at(0.2, 0.35)
	l[face.LandmarkRightEyeOuterCorner] = at(0.8, 0.35)
	l[face.LandmarkLeftMouthCorner] = at(0.3, 0.75)
	l[face.LandmarkRightMouthCorner] = at(0.7, 0.75)
	l[face.LandmarkNoseTip] = at(0.5, 0.35+neutralNoseRatio*0.4)
	l[face.LandmarkChin] = at(0.5, 0.98)
	return l
}
