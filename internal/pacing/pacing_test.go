// internal/pacing/pacing_test.go
package pacing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUniform_WaitWithinBounds(t *testing.T) {
	u := NewUniform(5*time.Millisecond, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := u.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < 5*time.Millisecond {
			t.Errorf("Wait returned too early: %v", elapsed)
		}
		if elapsed > 200*time.Millisecond {
			t.Errorf("Wait took far too long: %v", elapsed)
		}
	}
}

func TestUniform_DefaultsWhenUnset(t *testing.T) {
	u := NewUniform(0, 0)
	if u.Min != 4*time.Second || u.Max != 7*time.Second {
		t.Errorf("Expected 4s-7s defaults, got %v-%v", u.Min, u.Max)
	}
}

func TestUniform_SwapsReversedBounds(t *testing.T) {
	u := NewUniform(7*time.Second, 4*time.Second)
	if u.Min != 4*time.Second || u.Max != 7*time.Second {
		t.Errorf("Expected reversed bounds to be swapped, got %v-%v", u.Min, u.Max)
	}
}

func TestUniform_CancelInterruptsSleep(t *testing.T) {
	u := NewUniform(time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := u.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Cancel did not interrupt the sleep promptly")
	}
}
