// Package report delivers extraction results to their consumers. Reporter
// failures are isolated from the capture pipeline: they are logged and
// counted, never returned into frame delivery.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Batch is the output of one extraction: results in the order of the
// snapshot boxes they were computed from.
type Batch struct {
	ID              string             `json:"id"`
	FrameSeq        uint64             `json:"frame_seq"`
	FrameTime       time.Time          `json:"frame_time"`
	SnapshotVersion uint64             `json:"snapshot_version"`
	Boxes           []face.BoundingBox `json:"boxes"`
	Results         []face.Result      `json:"results"`
	Elapsed         time.Duration      `json:"elapsed_ns"`
}

// NewBatch stamps a batch with a fresh ID.
func NewBatch(frame face.Frame, snap face.Snapshot, results []face.Result, elapsed time.Duration) Batch {
	return Batch{
		ID:              uuid.NewString(),
		FrameSeq:        frame.Seq,
		FrameTime:       frame.Timestamp,
		SnapshotVersion: snap.Version(),
		Boxes:           snap.Boxes(),
		Results:         results,
		Elapsed:         elapsed,
	}
}

// Reporter consumes result batches. Report is called from a single
// goroutine, never concurrently.
type Reporter interface {
	Report(ctx context.Context, batch Batch) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, batch Batch) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

// FormatResults writes the per-face text block: six labelled landmark lines
// followed by pitch, yaw and roll. Nothing is written for an empty slice.
func FormatResults(w io.Writer, results []face.Result) error {
	for _, r := range results {
		for _, nl := range face.ReportedLandmarks {
			if _, err := fmt.Fprintf(w, "%s: %s\n", nl.Label, r.Landmarks[nl.Index]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s: %.2f\n%s: %.2f\n%s: %.2f\n",
			face.PitchLabel, r.Pose.Pitch,
			face.YawLabel, r.Pose.Yaw,
			face.RollLabel, r.Pose.Roll); err != nil {
			return err
		}
	}
	return nil
}

// LogReporter writes FormatResults output to an io.Writer.
type LogReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogReporter writes to w.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w}
}

// Report implements Reporter.
func (r *LogReporter) Report(_ context.Context, batch Batch) error {
	if len(batch.Results) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return FormatResults(r.w, batch.Results)
}

// Multi fans a batch out to several reporters. Every reporter is called even
// if an earlier one fails; the errors are joined.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, batch Batch) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Isolated wraps a reporter so that errors and panics are logged and counted
// instead of reaching the caller.
type Isolated struct {
	inner  Reporter
	logger *slog.Logger

	reported atomic.Uint64
	failed   atomic.Uint64
}

// NewIsolated wraps inner.
func NewIsolated(inner Reporter, logger *slog.Logger) *Isolated {
	if logger == nil {
		logger = slog.Default()
	}
	return &Isolated{inner: inner, logger: logger.With("component", "report")}
}

// Report implements Reporter. It always returns nil.
func (i *Isolated) Report(ctx context.Context, batch Batch) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("report: reporter panic: %v", p)
		}
		if err != nil {
			i.failed.Add(1)
			i.logger.Warn("reporter failed", "batch", batch.ID, "error", err)
		} else {
			i.reported.Add(1)
		}
		err = nil
	}()
	return i.inner.Report(ctx, batch)
}

// Reported is the number of batches delivered without error.
func (i *Isolated) Reported() uint64 { return i.reported.Load() }

// Failed is the number of batches whose reporter errored or panicked.
func (i *Isolated) Failed() uint64 { return i.failed.Load() }
