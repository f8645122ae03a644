package pipeline

import "sync/atomic"

// Stats is a point-in-time view of pipeline counters.
type Stats struct {
	FramesDelivered uint64 `json:"frames_delivered"`
	FramesRendered  uint64 `json:"frames_rendered"`
	RenderFailures  uint64 `json:"render_failures"`
	SkippedEmpty    uint64 `json:"skipped_empty"`

	ExtractionsQueued     uint64 `json:"extractions_queued"`
	ExtractionsSuperseded uint64 `json:"extractions_superseded"`
	ExtractionsStarted    uint64 `json:"extractions_started"`
	ExtractionsCompleted  uint64 `json:"extractions_completed"`
	ExtractionsFailed     uint64 `json:"extractions_failed"`
	ExtractionsDiscarded  uint64 `json:"extractions_discarded"`
	EmptyResults          uint64 `json:"empty_results"`

	ReportsDelivered uint64 `json:"reports_delivered"`
	ReportsFailed    uint64 `json:"reports_failed"`

	InFlight            bool   `json:"in_flight"`
	LastSnapshotVersion uint64 `json:"last_snapshot_version"`
}

type counters struct {
	framesDelivered atomic.Uint64
	framesRendered  atomic.Uint64
	renderFailures  atomic.Uint64
	skippedEmpty    atomic.Uint64

	queued     atomic.Uint64
	superseded atomic.Uint64
	started    atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	discarded  atomic.Uint64
	empty      atomic.Uint64

	inFlight    atomic.Bool
	lastVersion atomic.Uint64
}
