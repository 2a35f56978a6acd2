package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// GenerateWithRetry calls the engine and retries transient failures with
// jittered exponential backoff. retries is the number of extra attempts
// after the first. When the context ends mid-sequence the context error is
// returned, so callers can tell a hung-up guest from a broken engine.
func GenerateWithRetry(ctx context.Context, eng Engine, history []booking.Turn, retries int) (Reply, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, withJitter(expBackoff(attempt))); err != nil {
				return Reply{}, err
			}
		}
		reply, err := eng.GenerateReply(ctx, history)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
	}
	return Reply{}, lastErr
}

func expBackoff(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}

// withJitter spreads retries by +-20% so concurrent sessions do not hammer
// the model API in lockstep.
func withJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
