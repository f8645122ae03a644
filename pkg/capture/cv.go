package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// CVDiscoverer opens OpenCV capture devices by index.
type CVDiscoverer struct {
	Logger *slog.Logger
}

// Default opens the camera at the configured index. Only MediaVideo is
// supported.
func (d CVDiscoverer) Default(media MediaType) (Device, error) {
	return d.open(media, 0)
}

// At returns a discoverer bound to a specific device index.
func (d CVDiscoverer) At(index int) Discoverer {
	return DiscovererFunc(func(media MediaType) (Device, error) {
		return d.open(media, index)
	})
}

func (d CVDiscoverer) open(media MediaType, index int) (Device, error) {
	if media != MediaVideo {
		return nil, fmt.Errorf("unsupported media type %q", media)
	}
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not opened", index)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &cvDevice{
		name:   fmt.Sprintf("opencv:%d", index),
		vc:     vc,
		logger: logger.With("component", "capture.cv"),
	}, nil
}

// cvDevice wraps a gocv.VideoCapture. The video output reads the camera;
// the metadata output runs YuNet on the newest raw frame at the detection
// interval.
type cvDevice struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	detector *YuNetDetector
	closed   bool
	done     chan struct{}

	// Newest unrotated BGR frame, shared with the detector.
	rawMu   sync.Mutex
	raw     gocv.Mat
	hasRaw  bool
	rawSize [2]int
	rawSeq  uint64
}

func (d *cvDevice) Name() string { return d.name }

// AttachInput applies the preset resolution and checks the camera delivers
// frames.
func (d *cvDevice) AttachInput(cfg Config) error {
	res := cfg.Resolution()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.done = make(chan struct{})

	d.vc.Set(gocv.VideoCaptureFrameWidth, float64(res.Width))
	d.vc.Set(gocv.VideoCaptureFrameHeight, float64(res.Height))
	d.vc.Set(gocv.VideoCaptureFPS, float64(res.Framerate))

	first := gocv.NewMat()
	defer first.Close()
	if ok := d.vc.Read(&first); !ok || first.Empty() {
		return fmt.Errorf("camera delivered no frame")
	}
	if first.Channels() != 3 {
		return fmt.Errorf("unexpected camera format: %d channels", first.Channels())
	}

	d.logger.Info("camera input attached",
		"requested", fmt.Sprintf("%dx%d@%d", res.Width, res.Height, res.Framerate),
		"actual", fmt.Sprintf("%dx%d", first.Cols(), first.Rows()))
	return nil
}

// AttachVideoOutput returns the frame reader.
func (d *cvDevice) AttachVideoOutput(cfg Config) (VideoOutput, error) {
	if cfg.PixelFormat != face.PixelFormatBGRA {
		return nil, fmt.Errorf("unsupported pixel format %q", cfg.PixelFormat)
	}
	return &cvVideoOutput{dev: d, orientation: cfg.OrientationValue()}, nil
}

// AttachMetadataOutput loads the face detector.
func (d *cvDevice) AttachMetadataOutput(cfg Config) (MetadataOutput, error) {
	det, err := NewYuNet(DetectorConfig{
		ModelPath:        cfg.ModelPath,
		ConfidenceThresh: cfg.ConfidenceThresh,
	})
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.detector = det
	d.mu.Unlock()
	return &cvMetadataOutput{dev: d, interval: cfg.DetectionInterval}, nil
}

// Close releases the camera and detector and unblocks pending reads.
func (d *cvDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.done != nil {
		close(d.done)
	}

	err := d.vc.Close()
	if d.detector != nil {
		d.detector.Close()
	}

	d.rawMu.Lock()
	if d.hasRaw {
		d.raw.Close()
		d.hasRaw = false
	}
	d.rawMu.Unlock()
	return err
}

// read grabs one frame from the camera into img.
func (d *cvDevice) read(img *gocv.Mat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if ok := d.vc.Read(img); !ok || img.Empty() {
		return fmt.Errorf("camera read failed")
	}
	return nil
}

// publishRaw keeps a copy of the newest unrotated frame for detection.
func (d *cvDevice) publishRaw(img gocv.Mat, seq uint64) {
	d.rawMu.Lock()
	defer d.rawMu.Unlock()
	if d.hasRaw {
		d.raw.Close()
	}
	d.raw = img.Clone()
	d.hasRaw = true
	d.rawSize = [2]int{img.Cols(), img.Rows()}
	d.rawSeq = seq
}

// takeRaw returns a copy of the newest raw frame, if it is newer than after.
func (d *cvDevice) takeRaw(after uint64) (gocv.Mat, [2]int, uint64, bool) {
	d.rawMu.Lock()
	defer d.rawMu.Unlock()
	if !d.hasRaw || d.rawSeq <= after {
		return gocv.Mat{}, [2]int{}, 0, false
	}
	return d.raw.Clone(), d.rawSize, d.rawSeq, true
}

type cvVideoOutput struct {
	dev         *cvDevice
	orientation face.Orientation
	seq         uint64
}

func (o *cvVideoOutput) ReadFrame(ctx context.Context) (face.Frame, error) {
	if err := ctx.Err(); err != nil {
		return face.Frame{}, err
	}

	raw := gocv.NewMat()
	defer raw.Close()
	if err := o.dev.read(&raw); err != nil {
		return face.Frame{}, err
	}
	at := time.Now()
	o.seq++
	o.dev.publishRaw(raw, o.seq)

	oriented := raw
	if flag, ok := rotateFlag(o.orientation); ok {
		rotated := gocv.NewMat()
		defer rotated.Close()
		gocv.Rotate(raw, &rotated, flag)
		oriented = rotated
	}

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(oriented, &bgra, gocv.ColorBGRToBGRA)

	return face.Frame{
		Timestamp: at,
		Width:     bgra.Cols(),
		Height:    bgra.Rows(),
		Format:    face.PixelFormatBGRA,
		Data:      bgra.ToBytes(),
	}, nil
}

// rotateFlag maps an orientation to the OpenCV rotation that produces it
// from the native landscape sensor image.
func rotateFlag(o face.Orientation) (gocv.RotateFlag, bool) {
	switch o {
	case face.OrientationPortrait:
		return gocv.Rotate90Clockwise, true
	case face.OrientationLandscapeLeft:
		return gocv.Rotate180Clockwise, true
	case face.OrientationPortraitUpsideDown:
		return gocv.Rotate90CounterClockwise, true
	}
	return 0, false
}

type cvMetadataOutput struct {
	dev      *cvDevice
	interval time.Duration
	ticker   *time.Ticker
	lastSeq  uint64
	events   uint64
}

// ReadEvent waits for the next detection tick with a fresh frame and runs
// YuNet on the unrotated image.
func (o *cvMetadataOutput) ReadEvent(ctx context.Context) (face.DetectionEvent, error) {
	if o.ticker == nil {
		o.ticker = time.NewTicker(o.interval)
	}
	for {
		select {
		case <-ctx.Done():
			o.stopTicker()
			return face.DetectionEvent{}, ctx.Err()
		case <-o.dev.done:
			o.stopTicker()
			return face.DetectionEvent{}, ErrClosed
		case <-o.ticker.C:
		}

		img, size, seq, ok := o.dev.takeRaw(o.lastSeq)
		if !ok {
			continue
		}
		o.lastSeq = seq

		objects, err := o.detect(img)
		img.Close()
		if err != nil {
			o.stopTicker()
			return face.DetectionEvent{}, err
		}

		o.events++
		return face.DetectionEvent{
			Seq:          o.events,
			Timestamp:    time.Now(),
			SourceWidth:  size[0],
			SourceHeight: size[1],
			Objects:      objects,
		}, nil
	}
}

// stopTicker releases the ticker; the next ReadEvent starts a new one.
func (o *cvMetadataOutput) stopTicker() {
	if o.ticker != nil {
		o.ticker.Stop()
		o.ticker = nil
	}
}

func (o *cvMetadataOutput) detect(img gocv.Mat) ([]face.RawObject, error) {
	o.dev.mu.Lock()
	det, closed := o.dev.detector, o.dev.closed
	o.dev.mu.Unlock()
	if closed || det == nil {
		return nil, ErrClosed
	}
	return det.Detect(img)
}
