// Package landmark defines the feature extraction contract and its
// implementations: an out-of-process landmark service client, a
// deterministic mock, and a geometric pose fallback.
package landmark

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-facepipe/pkg/face"
)

// Extractor computes landmarks and pose for each box in a frame.
//
// Implementations must return one result per box in box order, or no
// results at all when no face could be resolved. An empty box list yields
// an empty result. Extract keeps no state between calls and may block for
// an unbounded time; it should return promptly once ctx is done.
type Extractor interface {
	Extract(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error) {
	return f(ctx, frame, boxes)
}

// Checked wraps an extractor and enforces the arity contract.
type Checked struct {
	Inner Extractor
}

// Extract skips the inner call for an empty box list, and rejects output
// whose length is neither zero nor len(boxes).
func (c Checked) Extract(ctx context.Context, frame face.Frame, boxes []face.BoundingBox) ([]face.Result, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := c.Inner.Extract(ctx, frame, boxes)
	if err != nil {
		return nil, err
	}
	if len(results) != 0 && len(results) != len(boxes) {
		return nil, &ArityError{Want: len(boxes), Got: len(results)}
	}
	return results, nil
}

// String names the wrapped extractor for logs.
func (c Checked) String() string {
	return fmt.Sprintf("checked(%T)", c.Inner)
}
