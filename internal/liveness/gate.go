package liveness

import (
	"context"
	"fmt"
	"image"
)

// Gate bounds the number of in-flight liveness inferences. The stub is
// trivially cheap, but a real anti-spoofing model is as inference-bound as
// face detection and needs the same isolation from request fan-out.
type Gate struct {
	inner Detector
	slots chan struct{}
}

// NewGate wraps inner so that at most maxInflight Detect calls run at once.
func NewGate(inner Detector, maxInflight int) *Gate {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Gate{
		inner: inner,
		slots: make(chan struct{}, maxInflight),
	}
}

// Detect waits for a slot, respecting ctx, then delegates to the wrapped
// detector.
func (g *Gate) Detect(ctx context.Context, crop image.Image) (Decision, error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return Decision{}, fmt.Errorf("waiting for liveness slot: %w", ctx.Err())
	}
	defer func() { <-g.slots }()

	return g.inner.Detect(ctx, crop)
}
