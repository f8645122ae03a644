// Package render presents frames with optional landmark and pose overlays.
package render

import (
	"sync/atomic"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Overlay is what the renderer may draw on top of a frame. Results come from
// the most recent completed extraction and may lag the frame.
type Overlay struct {
	Boxes   []face.BoundingBox
	Results []face.Result

	// Parts draws the 68 landmark points and face boxes.
	Parts bool
	// Angles draws pitch, yaw and roll next to each face.
	Angles bool
}

// Renderer presents one frame. It is called from the video delivery
// goroutine for every frame, in order, and must not retain frame.Data after
// returning.
type Renderer interface {
	Render(frame face.Frame, overlay Overlay) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(frame face.Frame, overlay Overlay) error

// Render calls f.
func (f RendererFunc) Render(frame face.Frame, overlay Overlay) error {
	return f(frame, overlay)
}

// Nop discards every frame.
type Nop struct{}

// Render implements Renderer.
func (Nop) Render(face.Frame, Overlay) error { return nil }

// Toggles are the two overlay switches exposed to the UI.
type Toggles struct {
	parts  atomic.Bool
	angles atomic.Bool
}

// ToggleState is a point-in-time copy of Toggles.
type ToggleState struct {
	Parts  bool `json:"parts"`
	Angles bool `json:"angles"`
}

// NewToggles returns toggles with the given initial state.
func NewToggles(parts, angles bool) *Toggles {
	t := &Toggles{}
	t.parts.Store(parts)
	t.angles.Store(angles)
	return t
}

// SetParts switches the landmark overlay.
func (t *Toggles) SetParts(on bool) { t.parts.Store(on) }

// SetAngles switches the pose overlay.
func (t *Toggles) SetAngles(on bool) { t.angles.Store(on) }

// Set applies a full state.
func (t *Toggles) Set(s ToggleState) {
	t.parts.Store(s.Parts)
	t.angles.Store(s.Angles)
}

// State returns the current switches.
func (t *Toggles) State() ToggleState {
	return ToggleState{Parts: t.parts.Load(), Angles: t.angles.Load()}
}
