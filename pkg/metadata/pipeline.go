// Package metadata turns raw detection events into face snapshots and
// publishes them to the shared store.
package metadata

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-facepipe/pkg/debug"
	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Publisher is the write side of the snapshot store.
type Publisher interface {
	Publish(face.Snapshot) face.Snapshot
}

// Stats counts what the pipeline has seen.
type Stats struct {
	Events         uint64 `json:"events"`
	FacesPublished uint64 `json:"faces_published"`
	EmptyPublishes uint64 `json:"empty_publishes"`
	IgnoredObjects uint64 `json:"ignored_objects"`
	LastVersion    uint64 `json:"last_version"`
}

// Pipeline converts every detection event into a snapshot and publishes it.
// There is no filtering or smoothing: each event fully replaces the previous
// snapshot, including events with no faces.
type Pipeline struct {
	store     Publisher
	transform face.Transform
	logger    *slog.Logger

	events      atomic.Uint64
	faces       atomic.Uint64
	empties     atomic.Uint64
	ignored     atomic.Uint64
	lastVersion atomic.Uint64
}

// New creates a metadata pipeline writing to store. orientation must match
// the one applied to video frames.
func New(store Publisher, orientation face.Orientation, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		transform: face.Transform{Orientation: orientation},
		logger:    logger.With("component", "metadata"),
	}
}

// Convert maps the face objects of an event into oriented pixel boxes, in
// event order. Objects of any other kind are skipped; the second return is
// how many.
func (p *Pipeline) Convert(ev face.DetectionEvent) ([]face.BoundingBox, int) {
	var (
		out     []face.BoundingBox
		skipped int
	)
	for _, obj := range ev.Objects {
		if obj.Kind != face.KindFace {
			skipped++
			continue
		}
		out = append(out, p.transform.Apply(obj.Bounds, ev.SourceWidth, ev.SourceHeight))
	}
	return out, skipped
}

// Handle processes one event. It is called from the metadata delivery
// goroutine, in arrival order.
func (p *Pipeline) Handle(ev face.DetectionEvent) face.Snapshot {
	boxes, skipped := p.Convert(ev)
	published := p.store.Publish(face.NewSnapshot(boxes, ev.Timestamp))

	p.events.Add(1)
	p.ignored.Add(uint64(skipped))
	if published.Empty() {
		p.empties.Add(1)
	} else {
		p.faces.Add(uint64(published.Len()))
	}
	p.lastVersion.Store(published.Version())

	debug.PipelineLog("📐 metadata seq=%d faces=%d ignored=%d version=%d\n",
		ev.Seq, published.Len(), skipped, published.Version())
	return published
}

// Run handles events from ch until ctx is done or ch is closed.
func (p *Pipeline) Run(ctx context.Context, ch <-chan face.DetectionEvent) error {
	p.logger.Debug("metadata pipeline running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			p.Handle(ev)
		}
	}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Events:         p.events.Load(),
		FacesPublished: p.faces.Load(),
		EmptyPublishes: p.empties.Load(),
		IgnoredObjects: p.ignored.Load(),
		LastVersion:    p.lastVersion.Load(),
	}
}
