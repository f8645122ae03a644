package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facepipe/internal/log"
	"github.com/teslashibe/go-facepipe/pkg/face"
	"github.com/teslashibe/go-facepipe/pkg/snapshot"
)

func faceObj(x, y, w, h float64) face.RawObject {
	return face.RawObject{Kind: face.KindFace, Bounds: face.NormRect{X: x, Y: y, W: w, H: h}, Confidence: 0.9}
}

func event(seq uint64, objs ...face.RawObject) face.DetectionEvent {
	return face.DetectionEvent{
		Seq:          seq,
		Timestamp:    time.Unix(int64(seq), 0),
		SourceWidth:  200,
		SourceHeight: 100,
		Objects:      objs,
	}
}

func TestPipeline_PublishesFacesInOrder(t *testing.T) {
	store := snapshot.New()
	p := New(store, face.OrientationLandscapeRight, log.Discard())

	p.Handle(event(1, faceObj(0.1, 0.1, 0.1, 0.1), faceObj(0.5, 0.5, 0.2, 0.2)))

	cur := store.Current()
	require.Equal(t, 2, cur.Len())
	assert.InDelta(t, 20, cur.Box(0).X, 1e-9)
	assert.InDelta(t, 100, cur.Box(1).X, 1e-9)
	assert.Equal(t, time.Unix(1, 0), cur.At())
}

func TestPipeline_EmptyEventClearsSnapshot(t *testing.T) {
	store := snapshot.New()
	p := New(store, face.OrientationPortrait, log.Discard())

	p.Handle(event(1, faceObj(0.1, 0.1, 0.1, 0.1)))
	require.False(t, store.Current().Empty())

	p.Handle(event(2))
	assert.True(t, store.Current().Empty())

	p.Handle(event(3))
	assert.True(t, store.Current().Empty())

	st := p.Stats()
	assert.Equal(t, uint64(3), st.Events)
	assert.Equal(t, uint64(2), st.EmptyPublishes)
	assert.Equal(t, uint64(1), st.FacesPublished)
	assert.Equal(t, uint64(3), st.LastVersion)
}

func TestPipeline_IgnoresNonFaceObjects(t *testing.T) {
	store := snapshot.New()
	p := New(store, face.OrientationPortrait, log.Discard())

	body := face.RawObject{Kind: face.KindBody, Bounds: face.NormRect{W: 1, H: 1}}
	p.Handle(event(1, body, faceObj(0.2, 0.2, 0.1, 0.1), body))

	assert.Equal(t, 1, store.Current().Len())
	assert.Equal(t, uint64(2), p.Stats().IgnoredObjects)
}

func TestPipeline_UsesSharedOrientation(t *testing.T) {
	store := snapshot.New()
	p := New(store, face.OrientationPortrait, log.Discard())

	obj := faceObj(0.1, 0.2, 0.2, 0.4)
	p.Handle(event(1, obj))

	want := face.Transform{Orientation: face.OrientationPortrait}.Apply(obj.Bounds, 200, 100)
	assert.Equal(t, want, store.Current().Box(0))
}

func TestConvert_Orientations(t *testing.T) {
	// 200x100 sensor, one face and one body.
	ev := event(1, faceObj(0.1, 0.2, 0.2, 0.4), face.RawObject{Kind: face.KindBody})

	tests := []struct {
		orientation face.Orientation
		want        []face.BoundingBox
	}{
		{face.OrientationLandscapeRight, []face.BoundingBox{{X: 20, Y: 20, W: 40, H: 40}}},
		{face.OrientationPortrait, []face.BoundingBox{{X: 40, Y: 20, W: 40, H: 40}}},
		{face.OrientationLandscapeLeft, []face.BoundingBox{{X: 140, Y: 40, W: 40, H: 40}}},
		{face.OrientationPortraitUpsideDown, []face.BoundingBox{{X: 20, Y: 140, W: 40, H: 40}}},
	}

	for _, tt := range tests {
		t.Run(tt.orientation.String(), func(t *testing.T) {
			p := New(snapshot.New(), tt.orientation, log.Discard())
			got, skipped := p.Convert(ev)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
			}
			if skipped != 1 {
				t.Errorf("skipped = %d, want 1", skipped)
			}
		})
	}
}

func TestPipeline_RunStopsOnClose(t *testing.T) {
	store := snapshot.New()
	p := New(store, face.OrientationPortrait, log.Discard())

	ch := make(chan face.DetectionEvent, 3)
	ch <- event(1, faceObj(0.1, 0.1, 0.1, 0.1))
	ch <- event(2)
	ch <- event(3, faceObj(0.1, 0.1, 0.1, 0.1), faceObj(0.3, 0.3, 0.1, 0.1))
	close(ch)

	require.NoError(t, p.Run(context.Background(), ch))
	assert.Equal(t, 2, store.Current().Len())
	assert.Equal(t, uint64(3), store.Version())
}

func TestPipeline_RunStopsOnCancel(t *testing.T) {
	p := New(snapshot.New(), face.OrientationPortrait, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, make(chan face.DetectionEvent))
	assert.ErrorIs(t, err, context.Canceled)
}
