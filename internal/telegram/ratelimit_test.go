package telegram

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	r := NewRateLimiter(100, 1)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// 100 rps with burst 1 means ~20ms for three requests
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("three waits took %v, expected rate limiting to apply", elapsed)
	}
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	r := NewRateLimiter(0.001, 1)

	ctx, cancel := context.WithCancel(context.Background())
	// burn the burst token
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	cancel()
	if err := r.Wait(ctx); err == nil {
		t.Error("Wait() on cancelled context should fail")
	}
}

func TestRateLimiter_FloodWait(t *testing.T) {
	r := NewRateLimiter(1000, 10)
	r.SetFloodWait(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); err == nil {
		t.Error("Wait() during flood wait should respect the context deadline")
	}
}
