package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-facepipe/pkg/debug"
	"github.com/teslashibe/go-facepipe/pkg/report"
)

// worker runs extractions one at a time until the mailbox is closed.
func (p *VideoPipeline) worker() {
	defer p.wg.Done()
	for {
		j, ok := p.jobs.Take()
		if !ok {
			return
		}
		p.process(j)
	}
}

func (p *VideoPipeline) process(j job) {
	ctx := p.ctx
	if p.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ExtractTimeout)
		defer cancel()
	}

	p.c.started.Add(1)
	p.c.inFlight.Store(true)
	defer p.c.inFlight.Store(false)

	boxes := j.snap.Boxes()
	start := time.Now()
	results, err := p.extractor.Extract(ctx, j.frame, boxes)
	elapsed := time.Since(start)

	if err != nil {
		if p.ctx.Err() != nil {
			p.c.discarded.Add(1)
			return
		}
		p.c.failed.Add(1)
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("extraction timed out", "seq", j.frame.Seq, "timeout", p.cfg.ExtractTimeout)
		} else {
			p.logger.Warn("extraction failed", "seq", j.frame.Seq, "faces", len(boxes), "error", err)
		}
		return
	}

	p.gateMu.Lock()
	defer p.gateMu.Unlock()
	if p.stopped.Load() {
		p.c.discarded.Add(1)
		return
	}

	p.last.Store(&latest{boxes: boxes, results: results})
	p.c.completed.Add(1)
	p.c.lastVersion.Store(j.snap.Version())

	if len(results) == 0 {
		p.c.empty.Add(1)
		return
	}

	debug.PipelineLog("🧭 frame %d: %d face(s) in %v (snapshot v%d)\n",
		j.frame.Seq, len(results), elapsed, j.snap.Version())

	p.reporter.Report(p.ctx, report.NewBatch(j.frame, j.snap, results, elapsed))
}
