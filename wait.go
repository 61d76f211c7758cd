package main

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by WaitUntil when the condition never held.
var ErrWaitTimeout = errors.New("timed out waiting for condition")

// WaitUntil polls cond every interval until it reports true, returns an
// error, ctx ends or timeout elapses. cond is always evaluated at least once.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if ok {
			return nil
		}
		if err != nil && waitCtx.Err() == nil {
			return err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// sleepContext pauses for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
