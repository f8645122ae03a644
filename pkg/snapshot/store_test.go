package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

func boxes(n int, tag float64) []face.BoundingBox {
	out := make([]face.BoundingBox, n)
	for i := range out {
		out[i] = face.BoundingBox{X: tag, Y: float64(i), W: tag, H: tag}
	}
	return out
}

func TestStore_InitialValueIsEmpty(t *testing.T) {
	s := New()
	cur := s.Current()
	assert.True(t, cur.Empty())
	assert.Equal(t, uint64(0), cur.Version())
	assert.Equal(t, uint64(0), s.Version())
}

func TestStore_ZeroValueIsUsable(t *testing.T) {
	var s Store
	assert.True(t, s.Current().Empty())
	s.Publish(face.NewSnapshot(boxes(1, 1), time.Now()))
	assert.Equal(t, 1, s.Current().Len())
}

func TestStore_LastWriterWins(t *testing.T) {
	s := New()
	s.Publish(face.NewSnapshot(boxes(1, 1), time.Now()))
	second := s.Publish(face.NewSnapshot(boxes(2, 2), time.Now()))

	cur := s.Current()
	assert.Equal(t, uint64(2), cur.Version())
	assert.True(t, cur.SameBoxes(second))
	assert.Equal(t, 2, cur.Len())
}

func TestStore_EmptyPublishReplacesFaces(t *testing.T) {
	s := New()
	s.Publish(face.NewSnapshot(boxes(3, 1), time.Now()))
	s.Publish(face.EmptySnapshot())
	assert.True(t, s.Current().Empty())

	// Republishing empty only bumps the version.
	s.Publish(face.EmptySnapshot())
	assert.True(t, s.Current().Empty())
	assert.Equal(t, uint64(3), s.Version())
}

func TestStore_Reset(t *testing.T) {
	s := New()
	s.Publish(face.NewSnapshot(boxes(1, 1), time.Now()))
	s.Reset()
	assert.True(t, s.Current().Empty())
}

func TestStore_Changed(t *testing.T) {
	s := New()
	ch := s.Changed()

	select {
	case <-ch:
		t.Fatal("changed fired before publish")
	default:
	}

	s.Publish(face.EmptySnapshot())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("changed did not fire after publish")
	}
}

// Readers must only ever see complete snapshots: every box in a snapshot
// carries the same tag, so a torn read would mix tags.
func TestStore_ConcurrentReadersNeverSeeTornSnapshots(t *testing.T) {
	s := New()
	const publishes = 2000

	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastVersion uint64
			for {
				select {
				case <-done:
					return
				default:
				}
				cur := s.Current()
				if cur.Version() < lastVersion {
					t.Errorf("version went backwards: %d after %d", cur.Version(), lastVersion)
					return
				}
				lastVersion = cur.Version()
				for i := 1; i < cur.Len(); i++ {
					if cur.Box(i).X != cur.Box(0).X {
						t.Errorf("torn snapshot at version %d", cur.Version())
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= publishes; i++ {
		s.Publish(face.NewSnapshot(boxes(i%5, float64(i)), time.Now()))
	}
	close(done)
	wg.Wait()

	require.Equal(t, uint64(publishes), s.Version())
}

func TestStore_ConcurrentPublishersKeepVersionsOrdered(t *testing.T) {
	s := New()
	const writers, each = 4, 500

	var wg sync.WaitGroup
	versions := make([][]uint64, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				got := s.Publish(face.NewSnapshot(boxes(1, float64(w)), time.Now()))
				versions[w] = append(versions[w], got.Version())
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, uint64(writers*each), s.Version())
	assert.Equal(t, s.Version(), s.Current().Version())

	seen := make(map[uint64]bool, writers*each)
	for _, vs := range versions {
		for i, v := range vs {
			require.False(t, seen[v], "version %d handed out twice", v)
			seen[v] = true
			if i > 0 {
				require.Greater(t, v, vs[i-1])
			}
		}
	}
}
