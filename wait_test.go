package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitUntilSucceeds(t *testing.T) {
	calls := 0
	err := WaitUntil(context.Background(), time.Second, time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("WaitUntil: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestWaitUntilTimesOut(t *testing.T) {
	calls := 0
	start := time.Now()
	err := WaitUntil(context.Background(), 50*time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %v, before the timeout", elapsed)
	}
	// Polls are spaced by the interval, not spun.
	if calls > 10 {
		t.Fatalf("expected at most 10 polls, got %d", calls)
	}
}

func TestWaitUntilReturnsConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := WaitUntil(context.Background(), time.Second, time.Millisecond, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestWaitUntilParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitUntil(ctx, time.Second, time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
