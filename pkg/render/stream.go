package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Sink receives encoded JPEG frames, usually the camera hub.
type Sink interface {
	BroadcastBinary(data []byte) bool
	ClientCount() int
}

// StreamConfig controls StreamRenderer output.
type StreamConfig struct {
	Quality int // JPEG quality 1-100
	MaxFPS  int // 0 means every frame
}

// DefaultStreamConfig returns dashboard defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Quality: 80, MaxFPS: 15}
}

var (
	boxColor   = color.RGBA{0, 255, 0, 255}
	pointColor = color.RGBA{0, 200, 255, 255}
	keyColor   = color.RGBA{255, 0, 255, 255}
	textColor  = color.RGBA{255, 255, 255, 255}
)

// StreamRenderer draws overlays with OpenCV and broadcasts the frame as JPEG.
type StreamRenderer struct {
	sink   Sink
	cfg    StreamConfig
	logger *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewStreamRenderer renders into sink.
func NewStreamRenderer(sink Sink, cfg StreamConfig, logger *slog.Logger) *StreamRenderer {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultStreamConfig().Quality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamRenderer{
		sink:   sink,
		cfg:    cfg,
		logger: logger.With("component", "render"),
	}
}

// Render implements Renderer. Frames are skipped when nobody is watching or
// when they arrive faster than MaxFPS.
func (r *StreamRenderer) Render(frame face.Frame, overlay Overlay) error {
	if r.sink.ClientCount() == 0 || !r.due(frame.Timestamp) {
		return nil
	}

	data, err := r.Encode(frame, overlay)
	if err != nil {
		return err
	}
	if !r.sink.BroadcastBinary(data) {
		r.logger.Debug("camera frame dropped", "seq", frame.Seq)
	}
	return nil
}

func (r *StreamRenderer) due(at time.Time) bool {
	if r.cfg.MaxFPS <= 0 {
		return true
	}
	if at.IsZero() {
		at = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.last.IsZero() && at.Sub(r.last) < time.Second/time.Duration(r.cfg.MaxFPS) {
		return false
	}
	r.last = at
	return true
}

// Encode draws overlay on a copy of frame and returns it as JPEG.
func (r *StreamRenderer) Encode(frame face.Frame, overlay Overlay) ([]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC4, packed(frame))
	if err != nil {
		return nil, fmt.Errorf("render: wrap frame: %w", err)
	}
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.CvtColor(src, &img, gocv.ColorBGRAToBGR)

	drawOverlay(&img, overlay)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), r.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("render: encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf is native memory; copy before Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// packed returns frame pixels without row padding.
func packed(frame face.Frame) []byte {
	row := frame.Width * face.PixelFormatBGRA.BytesPerPixel()
	if frame.RowBytes() == row {
		return frame.Data[:row*frame.Height]
	}
	out := make([]byte, row*frame.Height)
	for y := 0; y < frame.Height; y++ {
		copy(out[y*row:(y+1)*row], frame.Data[y*frame.RowBytes():])
	}
	return out
}

func drawOverlay(img *gocv.Mat, overlay Overlay) {
	if overlay.Parts {
		for _, b := range overlay.Boxes {
			gocv.Rectangle(img, b.Rect(), boxColor, 2)
		}
		for _, res := range overlay.Results {
			for _, p := range res.Landmarks {
				gocv.Circle(img, pt(p), 1, pointColor, -1)
			}
			for _, nl := range face.ReportedLandmarks {
				gocv.Circle(img, pt(res.Landmarks[nl.Index]), 3, keyColor, -1)
			}
		}
	}

	if overlay.Angles {
		for i, res := range overlay.Results {
			anchor := image.Pt(10, 20+60*i)
			if i < len(overlay.Boxes) {
				anchor = overlay.Boxes[i].Rect().Min.Add(image.Pt(0, -8))
			}
			lines := []string{
				fmt.Sprintf("%s %.1f", face.PitchLabel, res.Pose.Pitch),
				fmt.Sprintf("%s %.1f", face.YawLabel, res.Pose.Yaw),
				fmt.Sprintf("%s %.1f", face.RollLabel, res.Pose.Roll),
			}
			for j, line := range lines {
				at := anchor.Add(image.Pt(0, -16*(len(lines)-1-j)))
				gocv.PutText(img, line, at, gocv.FontHersheySimplex, 0.45, textColor, 1)
			}
		}
	}
}

func pt(p face.Point) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}
