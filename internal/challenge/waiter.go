package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leadharvest/scrape/pkg/models"
)

// ErrTimeout is returned when a challenge is still up after the wait window.
// Callers must treat it as "abandon this page", never as a fatal run error.
var ErrTimeout = errors.New("challenge not resolved before timeout")

// ContentSource re-reads the current page content of a live session so the
// waiter can observe an operator solving the challenge by hand.
type ContentSource interface {
	Content(ctx context.Context) (string, error)
}

// Waiter polls a session until a detected challenge clears.
type Waiter struct {
	detector      *Detector
	PollInterval  time.Duration
	ProgressEvery time.Duration
}

// NewWaiter builds a waiter around the given detector. Poll interval
// defaults to 5s, with a progress log every 30s.
func NewWaiter(d *Detector) *Waiter {
	if d == nil {
		d = NewDetector()
	}
	return &Waiter{
		detector:      d,
		PollInterval:  5 * time.Second,
		ProgressEvery: 30 * time.Second,
	}
}

// Detector exposes the underlying classifier.
func (w *Waiter) Detector() *Detector {
	return w.detector
}

// AwaitClear checks the session's current content and, if challenged, polls
// until the challenge clears or timeout elapses. A human is expected to
// solve the challenge in the browser window during the wait; the warn log is
// the operator-visible notice.
func (w *Waiter) AwaitClear(ctx context.Context, src ContentSource, timeout time.Duration) error {
	body, err := src.Content(ctx)
	if err != nil {
		return err
	}
	if w.detector.Classify(body) == models.StateClear {
		return nil
	}

	log.Warn().
		Dur("timeout", timeout).
		Msg("Bot challenge detected! Solve it in the browser window; waiting...")

	interval := w.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	progress := w.ProgressEvery
	if progress <= 0 {
		progress = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.Now().Add(timeout)

	var elapsed time.Duration
	nextLog := progress
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		elapsed += interval

		body, err = src.Content(ctx)
		if err != nil {
			return err
		}
		if w.detector.Classify(body) == models.StateClear {
			log.Info().Dur("waited", elapsed).Msg("Challenge resolved, resuming")
			return nil
		}
		if elapsed >= nextLog {
			log.Info().Dur("waited", elapsed).Msg("Still waiting on challenge...")
			nextLog += progress
		}
		if time.Now().After(deadline) {
			log.Error().Dur("timeout", timeout).Msg("Challenge not resolved in time")
			return ErrTimeout
		}
	}
}
