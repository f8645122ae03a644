package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facepipe/internal/mailbox"
	"github.com/teslashibe/go-facepipe/pkg/debug"
	"github.com/teslashibe/go-facepipe/pkg/face"
	"github.com/teslashibe/go-facepipe/pkg/landmark"
	"github.com/teslashibe/go-facepipe/pkg/metadata"
	"github.com/teslashibe/go-facepipe/pkg/pipeline"
	"github.com/teslashibe/go-facepipe/pkg/render"
	"github.com/teslashibe/go-facepipe/pkg/report"
	"github.com/teslashibe/go-facepipe/pkg/snapshot"
)

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options are the session collaborators.
type Options struct {
	Config     Config
	Pipeline   pipeline.Config
	Discoverer Discoverer
	Extractor  landmark.Extractor
	Reporter   report.Reporter
	Renderer   render.Renderer
	Toggles    *render.Toggles
	Logger     *slog.Logger
}

// Stats is a point-in-time view of the session.
type Stats struct {
	ID              string         `json:"id"`
	State           string         `json:"state"`
	Device          string         `json:"device"`
	Orientation     string         `json:"orientation"`
	StartedAt       time.Time      `json:"started_at"`
	FramesCaptured  uint64         `json:"frames_captured"`
	FramesDropped   uint64         `json:"frames_dropped"`
	SnapshotVersion uint64         `json:"snapshot_version"`
	Faces           int            `json:"faces"`
	Metadata        metadata.Stats `json:"metadata"`
	Pipeline        pipeline.Stats `json:"pipeline"`
}

// run holds everything owned by one Start/Stop cycle.
type run struct {
	id      string
	device  Device
	video   *pipeline.VideoPipeline
	meta    *metadata.Pipeline
	frames  *mailbox.Mailbox[face.Frame]
	direct  chan face.Frame
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started time.Time

	videoOut VideoOutput
	metaOut  MetadataOutput

	captured atomic.Uint64
}

// Session wires a capture device to the metadata and video pipelines.
type Session struct {
	opts   Options
	store  *snapshot.Store
	logger *slog.Logger

	mu    sync.Mutex
	state atomic.Int32
	cur   *run
	last  Stats
}

// NewSession creates an idle session.
func NewSession(opts Options) (*Session, error) {
	if opts.Discoverer == nil {
		return nil, errors.New("capture: discoverer required")
	}
	if opts.Extractor == nil || opts.Reporter == nil {
		return nil, errors.New("capture: extractor and reporter required")
	}
	if opts.Toggles == nil {
		opts.Toggles = render.NewToggles(false, false)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		opts:   opts,
		store:  snapshot.New(),
		logger: opts.Logger.With("component", "capture"),
	}, nil
}

// Store returns the detection snapshot store shared by both pipelines.
func (s *Session) Store() *snapshot.Store { return s.store }

// Toggles returns the overlay switches passed through to the renderer.
func (s *Session) Toggles() *render.Toggles { return s.opts.Toggles }

// State returns the lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// ID returns the current run ID, or "" when idle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.id
}

// Start acquires the default video device, attaches input and outputs and
// starts both delivery goroutines. It fails with ErrDeviceUnavailable if no
// device is found, or a *ConfigurationError if attachment fails; in both
// cases the session stays idle and Start may be retried.
//
// ctx bounds the whole run: cancelling it stops delivery, but Stop is still
// required to release the device.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateIdle {
		return ErrAlreadyRunning
	}

	cfg := s.opts.Config
	if errs := cfg.Validate(); len(errs) > 0 {
		return &ConfigurationError{Stage: StageConfig, Err: fmt.Errorf("%v", errs)}
	}

	dev, err := s.opts.Discoverer.Default(cfg.MediaType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if dev == nil {
		return ErrDeviceUnavailable
	}

	r, err := s.attach(dev, cfg)
	if err != nil {
		dev.Close()
		return err
	}

	s.store.Reset()
	orientation := cfg.OrientationValue()
	r.meta = metadata.New(s.store, orientation, s.opts.Logger)

	r.video, err = pipeline.New(pipeline.Options{
		Config:    s.opts.Pipeline,
		Store:     s.store,
		Extractor: s.opts.Extractor,
		Reporter:  s.opts.Reporter,
		Renderer:  s.opts.Renderer,
		Toggles:   s.opts.Toggles,
		Logger:    s.opts.Logger,
	})
	if err != nil {
		dev.Close()
		return &ConfigurationError{Stage: StageConfig, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	if err := r.video.Start(runCtx); err != nil {
		cancel()
		dev.Close()
		return err
	}

	r.id = uuid.NewString()
	r.started = time.Now()
	if cfg.DiscardLateFrames {
		r.frames = mailbox.New[face.Frame]()
	} else {
		r.direct = make(chan face.Frame)
	}

	r.wg.Add(3)
	go s.captureFrames(runCtx, r)
	go s.deliverFrames(runCtx, r)
	go s.deliverMetadata(runCtx, r)

	s.cur = r
	s.state.Store(int32(StateRunning))

	s.logger.Info("capture session started",
		"session", r.id,
		"device", dev.Name(),
		"preset", cfg.Preset,
		"orientation", orientation.String(),
		"discard_late_frames", cfg.DiscardLateFrames)
	return nil
}

func (s *Session) attach(dev Device, cfg Config) (*run, error) {
	if err := dev.AttachInput(cfg); err != nil {
		return nil, &ConfigurationError{Stage: StageInput, Err: err}
	}
	vo, err := dev.AttachVideoOutput(cfg)
	if err != nil {
		return nil, &ConfigurationError{Stage: StageVideoOutput, Err: err}
	}
	mo, err := dev.AttachMetadataOutput(cfg)
	if err != nil {
		return nil, &ConfigurationError{Stage: StageMetadataOutput, Err: err}
	}
	return &run{device: dev, videoOut: vo, metaOut: mo}, nil
}

// captureFrames reads the video output and hands frames to the delivery
// goroutine. With DiscardLateFrames a new frame replaces one that has not
// been picked up yet.
func (s *Session) captureFrames(ctx context.Context, r *run) {
	defer r.wg.Done()
	defer func() {
		if r.frames != nil {
			r.frames.Close()
		} else {
			close(r.direct)
		}
	}()

	var seq uint64
	for {
		frame, err := r.videoOut.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, ErrClosed) {
				s.logger.Warn("video output failed", "session", r.id, "error", err)
			}
			return
		}
		seq++
		frame.Seq = seq
		r.captured.Add(1)

		if r.frames != nil {
			if r.frames.Put(frame) {
				debug.PipelineLog("📷 frame %d replaced a late frame\n", seq)
			}
			continue
		}
		select {
		case r.direct <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// deliverFrames is the video delivery context: frames reach the video
// pipeline one at a time, in capture order.
func (s *Session) deliverFrames(ctx context.Context, r *run) {
	defer r.wg.Done()
	for {
		var (
			frame face.Frame
			ok    bool
		)
		if r.frames != nil {
			frame, ok = r.frames.Take()
		} else {
			frame, ok = <-r.direct
		}
		if !ok || ctx.Err() != nil {
			return
		}
		r.video.HandleFrame(frame)
	}
}

// deliverMetadata is the metadata delivery context.
func (s *Session) deliverMetadata(ctx context.Context, r *run) {
	defer r.wg.Done()
	for {
		ev, err := r.metaOut.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, ErrClosed) {
				s.logger.Warn("metadata output failed", "session", r.id, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.meta.Handle(ev)
	}
}

// Stop halts both streams, waits for the delivery goroutines to return,
// stops the video pipeline and clears the snapshot store. Once Stop returns
// without error no pipeline callback or report runs again. Stop on an idle
// session is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.cur
	if r == nil {
		return nil
	}
	s.state.Store(int32(StateStopping))

	r.cancel()
	if err := r.device.Close(); err != nil {
		s.logger.Warn("device close failed", "session", r.id, "error", err)
	}
	if r.frames != nil {
		r.frames.Close()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("capture: delivery did not drain: %w", ctx.Err())
	}

	if perr := r.video.Stop(ctx); perr != nil && err == nil {
		err = perr
	}

	s.last = s.statsLocked()
	s.last.State = StateIdle.String()
	s.store.Reset()
	s.cur = nil
	s.state.Store(int32(StateIdle))

	s.logger.Info("capture session stopped",
		"session", r.id,
		"frames", s.last.FramesCaptured,
		"dropped", s.last.FramesDropped,
		"reports", s.last.Pipeline.ReportsDelivered)
	return err
}

// Stats returns the running session's counters, or those of the last run
// when idle.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		st := s.last
		st.State = s.State().String()
		return st
	}
	return s.statsLocked()
}

func (s *Session) statsLocked() Stats {
	r := s.cur
	cur := s.store.Current()
	st := Stats{
		ID:              r.id,
		State:           s.State().String(),
		Device:          r.device.Name(),
		Orientation:     s.opts.Config.OrientationValue().String(),
		StartedAt:       r.started,
		FramesCaptured:  r.captured.Load(),
		SnapshotVersion: cur.Version(),
		Faces:           cur.Len(),
		Metadata:        r.meta.Stats(),
		Pipeline:        r.video.Stats(),
	}
	if r.frames != nil {
		st.FramesDropped = r.frames.Drops()
	}
	return st
}
