// Package retry wraps page fetches with bounded exponential backoff on
// explicit rate-limit signals.
package retry

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leadharvest/scrape/pkg/models"
)

// Config defines the backoff schedule. The signal is explicit (an HTTP
// status), so the schedule is deterministic; no jitter.
type Config struct {
	MaxAttempts          int
	InitialBackoff       time.Duration
	Multiplier           float64
	RetryableStatusCodes []int
}

// DefaultConfig mirrors the pacing the portals tolerate: three attempts with
// a 30s base doubling each time.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 30 * time.Second,
		Multiplier:     2.0,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests, // 429
		},
	}
}

// FetchFunc performs one fetch attempt.
type FetchFunc func() (models.FetchResult, error)

// Fetch runs fn, retrying on rate-limit statuses up to cfg.MaxAttempts. On
// exhaustion the last result is returned as-is with a nil error; the caller
// decides whether to treat it as a failure. Transport errors are returned
// immediately: they are the caller's scope-abandon signal, not a rate limit.
func Fetch(ctx context.Context, cfg Config, fn FetchFunc) (models.FetchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}

	var res models.FetchResult
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		res, err = fn()
		if err != nil {
			return res, err
		}
		if !retryable(res.StatusCode, cfg) {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return res, nil
		}

		// Don't sleep after the last attempt.
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := backoffFor(attempt, cfg)
		log.Warn().
			Int("status", res.StatusCode).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("Rate limited, backing off")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return res, ctx.Err()
		}
	}

	log.Warn().
		Int("attempts", cfg.MaxAttempts).
		Int("status", res.StatusCode).
		Msg("Rate-limit retries exhausted, returning last result")
	return res, nil
}

// backoffFor computes initialBackoff * multiplier^attempt.
func backoffFor(attempt int, cfg Config) time.Duration {
	return time.Duration(float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt)))
}

func retryable(status int, cfg Config) bool {
	for _, code := range cfg.RetryableStatusCodes {
		if status == code {
			return true
		}
	}
	return false
}
