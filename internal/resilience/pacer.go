package resilience

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer is a Pause hook whose jitter window widens as a scan burns
// through retry rounds. The first pass paces requests uniformly in
// [min, max]; each Bump multiplies the window by the factor so later
// rounds lean on the source host more gently.
type Pacer struct {
	min    time.Duration
	max    time.Duration
	factor float64

	mu    sync.Mutex
	scale float64
}

// NewPacer returns a Pacer pausing uniformly in [min, max]. Factors at
// or below 1 keep the window fixed across rounds.
func NewPacer(min, max time.Duration, factor float64) *Pacer {
	if max < min {
		max = min
	}
	if factor < 1 {
		factor = 1
	}
	return &Pacer{min: min, max: max, factor: factor, scale: 1}
}

// Pause sleeps one jittered interval at the current scale, honoring
// context cancellation. It satisfies RoundsConfig.Pause.
func (p *Pacer) Pause(ctx context.Context) error {
	p.mu.Lock()
	lo := time.Duration(float64(p.min) * p.scale)
	hi := time.Duration(float64(p.max) * p.scale)
	p.mu.Unlock()

	d := lo
	if span := hi - lo; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Bump widens the pause window by the configured factor. Wire it into
// RoundsConfig.OnRound so every retry pass paces slower than the one
// before it.
func (p *Pacer) Bump() {
	p.mu.Lock()
	p.scale *= p.factor
	p.mu.Unlock()
}

// window reports the current pause bounds.
func (p *Pacer) window() (lo, hi time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(float64(p.min) * p.scale), time.Duration(float64(p.max) * p.scale)
}
