// Package pipeline implements the per-frame video path: render every frame
// immediately, then hand extraction and reporting to a single-flight worker.
//
// Frames are paired with whichever detection snapshot is current when the
// frame is delivered. Detections run on their own schedule, so a frame may
// be processed against boxes that are one detection interval old. This lag
// is accepted: the video path never waits for a fresher snapshot.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-facepipe/internal/mailbox"
	"github.com/teslashibe/go-facepipe/pkg/debug"
	"github.com/teslashibe/go-facepipe/pkg/face"
	"github.com/teslashibe/go-facepipe/pkg/landmark"
	"github.com/teslashibe/go-facepipe/pkg/render"
	"github.com/teslashibe/go-facepipe/pkg/report"
)

// SnapshotSource is the read side of the snapshot store.
type SnapshotSource interface {
	Current() face.Snapshot
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// job is one pending extraction.
type job struct {
	frame face.Frame
	snap  face.Snapshot
}

// latest is the last completed extraction, drawn on subsequent frames.
type latest struct {
	boxes   []face.BoundingBox
	results []face.Result
}

// VideoPipeline consumes frames from the video delivery goroutine.
type VideoPipeline struct {
	cfg       Config
	store     SnapshotSource
	extractor landmark.Extractor
	reporter  *report.Isolated
	renderer  render.Renderer
	toggles   *render.Toggles
	logger    *slog.Logger

	state atomic.Int32
	jobs  *mailbox.Mailbox[job]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// stopped is set before Stop waits; process checks it under gateMu, so
	// once Stop has passed the gate no report is started.
	gateMu  sync.Mutex
	stopped atomic.Bool

	last atomic.Pointer[latest]
	c    counters
}

// Options are the collaborators of a VideoPipeline. Renderer and Toggles may
// be nil.
type Options struct {
	Config    Config
	Store     SnapshotSource
	Extractor landmark.Extractor
	Reporter  report.Reporter
	Renderer  render.Renderer
	Toggles   *render.Toggles
	Logger    *slog.Logger
}

// New creates an idle pipeline.
func New(opts Options) (*VideoPipeline, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: snapshot store required")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor required")
	}
	if opts.Reporter == nil {
		return nil, fmt.Errorf("pipeline: reporter required")
	}
	if errs := opts.Config.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: invalid config: %v", errs)
	}
	if opts.Renderer == nil {
		opts.Renderer = render.Nop{}
	}
	if opts.Toggles == nil {
		opts.Toggles = render.NewToggles(false, false)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "pipeline")

	p := &VideoPipeline{
		cfg:       opts.Config,
		store:     opts.Store,
		extractor: landmark.Checked{Inner: opts.Extractor},
		reporter:  report.NewIsolated(opts.Reporter, opts.Logger),
		renderer:  opts.Renderer,
		toggles:   opts.Toggles,
		logger:    logger,
		jobs:      mailbox.New[job](),
	}
	p.last.Store(&latest{})
	return p, nil
}

// Start launches the extraction worker. Cancelling ctx has the same effect
// on in-flight extraction as Stop, but only Stop guarantees no report
// follows.
func (p *VideoPipeline) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(stateIdle, stateRunning) {
		if p.state.Load() == stateStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.worker()

	p.logger.Debug("video pipeline started")
	return nil
}

// Stop cancels in-flight extraction, discards any pending job and waits for
// the worker to exit or ctx to end. When Stop returns, no new report will
// start, even if an extraction that ignores cancellation later completes.
// If ctx ends while a report is still in progress, Stop returns ctx.Err()
// without waiting for that reporter. Stop is idempotent.
func (p *VideoPipeline) Stop(ctx context.Context) error {
	prev := p.state.Swap(stateStopped)
	if prev == stateStopped {
		return nil
	}
	if prev == stateIdle {
		p.jobs.Close()
		return nil
	}

	p.cancel()
	if p.jobs.Close() {
		p.c.discarded.Add(1)
	}

	p.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		// A report already in progress holds the gate. A reporter that never
		// returns only blocks this goroutine, not the caller.
		p.gateMu.Lock()
		p.gateMu.Unlock()
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("video pipeline stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("extraction or report still running after stop deadline")
		return ctx.Err()
	}
}

// HandleFrame processes one frame. It is called from the video delivery
// goroutine in arrival order and never blocks on extraction.
//
// The frame is rendered first, with the overlay of the last completed
// extraction. Then the current snapshot is read; if it has faces, an
// extraction job is handed to the worker, replacing any job still waiting.
func (p *VideoPipeline) HandleFrame(frame face.Frame) {
	if p.state.Load() != stateRunning {
		return
	}
	p.c.framesDelivered.Add(1)

	p.render(frame)

	snap := p.store.Current()
	if snap.Empty() {
		p.c.skippedEmpty.Add(1)
		debug.PipelineLog("🎞️  frame %d: no faces (snapshot v%d)\n", frame.Seq, snap.Version())
		return
	}

	p.c.queued.Add(1)
	if p.jobs.Put(job{frame: frame, snap: snap}) {
		p.c.superseded.Add(1)
		debug.PipelineLog("🎞️  frame %d superseded a pending extraction\n", frame.Seq)
	}
}

func (p *VideoPipeline) render(frame face.Frame) {
	l := p.last.Load()
	ts := p.toggles.State()
	overlay := render.Overlay{
		Boxes:   l.boxes,
		Results: l.results,
		Parts:   ts.Parts,
		Angles:  ts.Angles,
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("renderer panic: %v", r)
			}
		}()
		return p.renderer.Render(frame, overlay)
	}()
	if err != nil {
		if p.c.renderFailures.Add(1) == 1 {
			p.logger.Warn("render failed", "seq", frame.Seq, "error", err)
		} else {
			p.logger.Debug("render failed", "seq", frame.Seq, "error", err)
		}
		return
	}
	p.c.framesRendered.Add(1)
}

// Latest returns the results of the last completed extraction.
func (p *VideoPipeline) Latest() []face.Result {
	l := p.last.Load()
	out := make([]face.Result, len(l.results))
	copy(out, l.results)
	return out
}

// Stats returns a snapshot of the pipeline counters.
func (p *VideoPipeline) Stats() Stats {
	return Stats{
		FramesDelivered:       p.c.framesDelivered.Load(),
		FramesRendered:        p.c.framesRendered.Load(),
		RenderFailures:        p.c.renderFailures.Load(),
		SkippedEmpty:          p.c.skippedEmpty.Load(),
		ExtractionsQueued:     p.c.queued.Load(),
		ExtractionsSuperseded: p.c.superseded.Load(),
		ExtractionsStarted:    p.c.started.Load(),
		ExtractionsCompleted:  p.c.completed.Load(),
		ExtractionsFailed:     p.c.failed.Load(),
		ExtractionsDiscarded:  p.c.discarded.Load(),
		EmptyResults:          p.c.empty.Load(),
		ReportsDelivered:      p.reporter.Reported(),
		ReportsFailed:         p.reporter.Failed(),
		InFlight:              p.c.inFlight.Load(),
		LastSnapshotVersion:   p.c.lastVersion.Load(),
	}
}
