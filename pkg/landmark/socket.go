package landmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// DefaultSocketTimeout bounds a single request when ctx has no earlier deadline.
const DefaultSocketTimeout = 500 * time.Millisecond

// extractRequest is sent to the landmark service.
type extractRequest struct {
	Width  int          `msgpack:"w"`
	Height int          `msgpack:"h"`
	Stride int          `msgpack:"s"`
	Format string       `msgpack:"f"`
	Data   []byte       `msgpack:"d"` // BGRA uint8, row-major
	Boxes  [][4]float32 `msgpack:"b"` // x, y, w, h in frame pixels
}

// extractFace is one face in the service reply.
type extractFace struct {
	Landmarks []float32 `msgpack:"l"` // 136 values: x0,y0 ... x67,y67
	Pose      []float32 `msgpack:"p"` // pitch, yaw, roll in degrees; optional
}

// extractResponse is received from the landmark service.
type extractResponse struct {
	Faces       []extractFace `msgpack:"faces"`
	Error       string        `msgpack:"error"`
	InferenceMs float32       `msgpack:"inference_ms"`
}

// SocketExtractor talks to an out-of-process landmark/pose service over a
// unix socket, one connection per request, msgpack encoded.
type SocketExtractor struct {
	socketPath string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewSocketExtractor creates a client for the service at socketPath.
func NewSocketExtractor(socketPath string, timeout time.Duration, logger *slog.Logger) *SocketExtractor {
	if timeout <= 0 {
		timeout = DefaultSocketTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketExtractor{
		socketPath: socketPath,
		timeout:    timeout,
		logger:     logger.With("component", "landmark.socket"),
	}
}

// Extract implements Extractor.
func (c *SocketExtractor) Extract(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ServiceError{Op: "dial", Err: errors.Join(ErrServiceUnavailable, err)}
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	// Unblock I/O as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	req := extractRequest{
		Width:  frame.Width,
		Height: frame.Height,
		Stride: frame.RowBytes(),
		Format: string(frame.Format),
		Data:   frame.Data,
		Boxes:  make([][4]float32, len(boxes)),
	}
	for i, b := range boxes {
		req.Boxes[i] = [4]float32{float32(b.X), float32(b.Y), float32(b.W), float32(b.H)}
	}

	if err := msgpack.NewEncoder(conn).Encode(&req); err != nil {
		return nil, c.ioError(ctx, "send", err)
	}

	var resp extractResponse
	if err := msgpack.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, c.ioError(ctx, "receive", err)
	}
	if resp.Error != "" {
		return nil, &ServiceError{Op: "extract", Err: errors.New(resp.Error)}
	}

	c.logger.Debug("landmarks extracted",
		"faces", len(resp.Faces),
		"boxes", len(boxes),
		"inference_ms", resp.InferenceMs)

	return decodeFaces(resp.Faces, len(boxes))
}

func (c *SocketExtractor) ioError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ServiceError{Op: op, Err: err}
}

func decodeFaces(faces []extractFace, boxes int) ([]face.Result, error) {
	if len(faces) == 0 {
		return nil, nil
	}
	if len(faces) != boxes {
		return nil, &ArityError{Want: boxes, Got: len(faces)}
	}

	results := make([]face.Result, len(faces))
	for i, f := range faces {
		if len(f.Landmarks) != 2*face.LandmarkCount {
			return nil, fmt.Errorf("%w: face %d has %d landmark values", ErrMalformedResponse, i, len(f.Landmarks))
		}
		for j := range results[i].Landmarks {
			results[i].Landmarks[j] = face.Point{
				X: float64(f.Landmarks[2*j]),
				Y: float64(f.Landmarks[2*j+1]),
			}
		}

		switch len(f.Pose) {
		case 3:
			results[i].Pose = face.PoseAngles{
				Pitch: float64(f.Pose[0]),
				Yaw:   float64(f.Pose[1]),
				Roll:  float64(f.Pose[2]),
			}
		case 0:
			results[i].Pose = EstimatePose(results[i].Landmarks)
		default:
			return nil, fmt.Errorf("%w: face %d has %d pose values", ErrMalformedResponse, i, len(f.Pose))
		}
	}
	return results, nil
}
