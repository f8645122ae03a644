package report

import (
	"context"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Broadcaster is the hub side used by HubReporter.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// FaceMessage is the JSON form of one face result on the results stream.
type FaceMessage struct {
	Box       face.BoundingBox `json:"box"`
	Landmarks map[string]Point `json:"landmarks"`
	Pose      face.PoseAngles  `json:"pose"`
}

// Point is a JSON landmark position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResultsMessage is the JSON payload broadcast for one batch.
type ResultsMessage struct {
	Type            string        `json:"type"`
	ID              string        `json:"id"`
	FrameSeq        uint64        `json:"frame_seq"`
	SnapshotVersion uint64        `json:"snapshot_version"`
	ElapsedMs       float64       `json:"elapsed_ms"`
	Faces           []FaceMessage `json:"faces"`
}

// NewResultsMessage converts a batch into its wire form. Landmarks are keyed
// by their report label.
func NewResultsMessage(batch Batch) ResultsMessage {
	msg := ResultsMessage{
		Type:            "results",
		ID:              batch.ID,
		FrameSeq:        batch.FrameSeq,
		SnapshotVersion: batch.SnapshotVersion,
		ElapsedMs:       float64(batch.Elapsed.Microseconds()) / 1000,
		Faces:           make([]FaceMessage, len(batch.Results)),
	}
	for i, r := range batch.Results {
		fm := FaceMessage{
			Landmarks: make(map[string]Point, len(face.ReportedLandmarks)),
			Pose:      r.Pose,
		}
		if i < len(batch.Boxes) {
			fm.Box = batch.Boxes[i]
		}
		for _, nl := range face.ReportedLandmarks {
			p := r.Landmarks[nl.Index]
			fm.Landmarks[nl.Label] = Point{X: p.X, Y: p.Y}
		}
		msg.Faces[i] = fm
	}
	return msg
}

// HubReporter broadcasts each batch as JSON to results stream subscribers.
type HubReporter struct {
	hub Broadcaster
}

// NewHubReporter broadcasts to hub.
func NewHubReporter(hub Broadcaster) *HubReporter {
	return &HubReporter{hub: hub}
}

// Report implements Reporter.
func (r *HubReporter) Report(_ context.Context, batch Batch) error {
	if len(batch.Results) == 0 {
		return nil
	}
	return r.hub.BroadcastJSON(NewResultsMessage(batch))
}
