package render

import (
	"bytes"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facepipe/internal/log"
	"github.com/teslashibe/go-facepipe/pkg/face"
)

func TestToggles(t *testing.T) {
	tg := NewToggles(true, false)
	assert.Equal(t, ToggleState{Parts: true}, tg.State())

	tg.SetAngles(true)
	tg.SetParts(false)
	assert.Equal(t, ToggleState{Angles: true}, tg.State())

	tg.Set(ToggleState{Parts: true, Angles: true})
	assert.Equal(t, ToggleState{Parts: true, Angles: true}, tg.State())
}

func TestToggles_ConcurrentAccess(t *testing.T) {
	tg := NewToggles(false, false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tg.SetParts(on)
				_ = tg.State()
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

type fakeSink struct {
	mu      sync.Mutex
	clients int
	frames  [][]byte
}

func (s *fakeSink) BroadcastBinary(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, data)
	return true
}

func (s *fakeSink) ClientCount() int { return s.clients }

func grayFrame(w, h int, at time.Time) face.Frame {
	data := make([]byte, w*h*4)
	for i := range data {
		data[i] = 0x80
	}
	return face.Frame{Seq: 1, Timestamp: at, Width: w, Height: h, Format: face.PixelFormatBGRA, Data: data}
}

func TestStreamRenderer_SkipsWithoutViewers(t *testing.T) {
	sink := &fakeSink{}
	r := NewStreamRenderer(sink, StreamConfig{Quality: 70}, log.Discard())

	require.NoError(t, r.Render(grayFrame(32, 32, time.Now()), Overlay{}))
	assert.Empty(t, sink.frames)
}

func TestStreamRenderer_EncodesJPEG(t *testing.T) {
	sink := &fakeSink{clients: 1}
	r := NewStreamRenderer(sink, StreamConfig{Quality: 70}, log.Discard())

	box := face.BoundingBox{X: 4, Y: 4, W: 24, H: 24}
	var res face.Result
	res.Pose = face.PoseAngles{Pitch: 1, Yaw: 2, Roll: 3}
	overlay := Overlay{Boxes: []face.BoundingBox{box}, Results: []face.Result{res}, Parts: true, Angles: true}

	require.NoError(t, r.Render(grayFrame(64, 48, time.Now()), overlay))
	require.Len(t, sink.frames, 1)

	img, err := jpeg.Decode(bytes.NewReader(sink.frames[0]))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestStreamRenderer_RateLimit(t *testing.T) {
	sink := &fakeSink{clients: 1}
	r := NewStreamRenderer(sink, StreamConfig{Quality: 70, MaxFPS: 10}, log.Discard())

	t0 := time.Unix(100, 0)
	for _, at := range []time.Time{t0, t0.Add(50 * time.Millisecond), t0.Add(120 * time.Millisecond)} {
		require.NoError(t, r.Render(grayFrame(16, 16, at), Overlay{}))
	}
	assert.Len(t, sink.frames, 2)
}

func TestStreamRenderer_RejectsBadFrame(t *testing.T) {
	sink := &fakeSink{clients: 1}
	r := NewStreamRenderer(sink, StreamConfig{}, log.Discard())

	bad := grayFrame(16, 16, time.Now())
	bad.Data = bad.Data[:10]
	assert.Error(t, r.Render(bad, Overlay{}))
}

func TestPacked_RemovesRowPadding(t *testing.T) {
	f := face.Frame{Width: 1, Height: 2, Stride: 8, Format: face.PixelFormatBGRA,
		Data: []byte{1, 2, 3, 4, 0, 0, 0, 0, 5, 6, 7, 8, 0, 0, 0, 0}}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, packed(f))
}
