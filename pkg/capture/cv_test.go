package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMetadataOutput_DetectErrorReleasesTicker(t *testing.T) {
	// No detector attached, so detection fails on the first fresh frame.
	dev := &cvDevice{name: "test", done: make(chan struct{})}
	img := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()
	dev.publishRaw(img, 1)
	defer dev.raw.Close()

	out := &cvMetadataOutput{dev: dev, interval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := out.ReadEvent(ctx)
	require.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, out.ticker)
	assert.Equal(t, uint64(1), out.lastSeq)
}

func TestMetadataOutput_ContextEndReleasesTicker(t *testing.T) {
	dev := &cvDevice{name: "test", done: make(chan struct{})}
	out := &cvMetadataOutput{dev: dev, interval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := out.ReadEvent(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, out.ticker)
}
