// Package pacing spaces requests out with randomized human-like delays.
// Fixed-interval requests are a primary bot signal, so every pause is drawn
// uniformly from a configured range instead of using a constant.
package pacing

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler produces randomized pauses between network operations.
type Scheduler interface {
	// Wait suspends the caller for a random duration in the default range.
	Wait(ctx context.Context) error

	// WaitRange suspends the caller for a random duration in [min, max].
	WaitRange(ctx context.Context, min, max time.Duration) error
}

// Uniform draws pauses from a uniform distribution over [Min, Max].
type Uniform struct {
	Min time.Duration
	Max time.Duration
	rng *rand.Rand
}

// NewUniform creates a scheduler with the given default bounds. Bounds are
// swapped if reversed and fall back to 4-7s when unset.
func NewUniform(min, max time.Duration) *Uniform {
	if min <= 0 {
		min = 4 * time.Second
	}
	if max <= 0 {
		max = 7 * time.Second
	}
	if max < min {
		min, max = max, min
	}
	return &Uniform{
		Min: min,
		Max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait suspends for a random duration in the scheduler's default range.
func (u *Uniform) Wait(ctx context.Context) error {
	return u.WaitRange(ctx, u.Min, u.Max)
}

// WaitRange suspends for a random duration in [min, max]. The sleep is
// interruptible; a cancelled context returns ctx.Err().
func (u *Uniform) WaitRange(ctx context.Context, min, max time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if max < min {
		min, max = max, min
	}

	d := min
	if span := max - min; span > 0 {
		d += time.Duration(u.rng.Int63n(int64(span) + 1))
	}

	log.Debug().Dur("delay", d).Msg("Pacing delay")

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
