package detector

import (
	"context"
	"fmt"
)

// Gate bounds the number of in-flight model inferences. Detection is CPU- or
// GPU-bound on the model side, so an unbounded fan-out from concurrent HTTP
// requests would let slow inferences starve everything else sharing the
// process.
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
// detector. A canceled wait returns the context error, not a business result.
func (g *Gate) Detect(ctx context.Context, imageData []byte) ([]Detection, error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for inference slot: %w", ctx.Err())
	}
	defer func() { <-g.slots }()

	return g.inner.Detect(ctx, imageData)
}
