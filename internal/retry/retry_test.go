// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadharvest/scrape/pkg/models"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:          3,
		InitialBackoff:       time.Millisecond,
		Multiplier:           2.0,
		RetryableStatusCodes: []int{429},
	}
}

func TestFetch_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	res, err := Fetch(context.Background(), fastConfig(), func() (models.FetchResult, error) {
		calls++
		return models.FetchResult{StatusCode: 200, Body: "ok"}, nil
	})

	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", calls)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", res.StatusCode)
	}
}

func TestFetch_RetriesRateLimit(t *testing.T) {
	calls := 0
	res, err := Fetch(context.Background(), fastConfig(), func() (models.FetchResult, error) {
		calls++
		if calls < 3 {
			return models.FetchResult{StatusCode: 429}, nil
		}
		return models.FetchResult{StatusCode: 200}, nil
	})

	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", res.StatusCode)
	}
}

func TestFetch_ExhaustionReturnsLastResult(t *testing.T) {
	calls := 0
	res, err := Fetch(context.Background(), fastConfig(), func() (models.FetchResult, error) {
		calls++
		return models.FetchResult{StatusCode: 429}, nil
	})

	// Exhaustion is not an error; the caller inspects the status.
	if err != nil {
		t.Fatalf("Expected nil error on exhaustion, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}
	if res.StatusCode != 429 {
		t.Errorf("Expected last result status 429, got %d", res.StatusCode)
	}
}

func TestFetch_TransportErrorImmediate(t *testing.T) {
	transportErr := errors.New("connection reset")
	calls := 0
	_, err := Fetch(context.Background(), fastConfig(), func() (models.FetchResult, error) {
		calls++
		return models.FetchResult{}, transportErr
	})

	if !errors.Is(err, transportErr) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retries on transport error, got %d attempts", calls)
	}
}

func TestFetch_ContextCancelDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Fetch(ctx, cfg, func() (models.FetchResult, error) {
		return models.FetchResult{StatusCode: 429}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Config{InitialBackoff: 30 * time.Second, Multiplier: 2.0}

	if got := backoffFor(0, cfg); got != 30*time.Second {
		t.Errorf("Expected 30s for attempt 0, got %v", got)
	}
	if got := backoffFor(1, cfg); got != 60*time.Second {
		t.Errorf("Expected 60s for attempt 1, got %v", got)
	}
	if got := backoffFor(2, cfg); got != 120*time.Second {
		t.Errorf("Expected 120s for attempt 2, got %v", got)
	}
}
