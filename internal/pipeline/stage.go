package pipeline

import (
	"context"
	"time"
)

// Per-stage deadlines used when the caller configures none.
const (
	defaultLivenessTimeout = 10 * time.Second
	defaultStoreTimeout    = 5 * time.Second
	defaultPublishTimeout  = 5 * time.Second
)

// Timeouts bounds each pipeline stage independently of the overall request
// deadline, so one hung dependency fails its own stage promptly instead of
// holding the request until the HTTP timeout fires. Detection carries its
// own deadline inside the detector client.
type Timeouts struct {
	Liveness time.Duration
	Store    time.Duration
	Publish  time.Duration
}

func (t Timeouts) orDefaults() Timeouts {
	if t.Liveness <= 0 {
		t.Liveness = defaultLivenessTimeout
	}
	if t.Store <= 0 {
		t.Store = defaultStoreTimeout
	}
	if t.Publish <= 0 {
		t.Publish = defaultPublishTimeout
	}
	return t
}

// stageContext derives a per-stage deadline from the request context.
func stageContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
