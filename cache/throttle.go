package cache

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Throttle spaces calls to an upstream API at least minDelay apart, adding
// up to maxJitter of random extra wait whenever it has to wait at all.
//
// The mutex is held across the wait so concurrent callers queue instead of
// both passing the elapsed check.
type Throttle struct {
	mu        sync.Mutex
	minDelay  time.Duration
	maxJitter time.Duration
	last      time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	jitter func(time.Duration) time.Duration
}

// NewThrottle derives the minimum spacing from maxPerSecond. Zero or a
// negative rate disables spacing.
func NewThrottle(maxPerSecond float64, maxJitter time.Duration) *Throttle {
	var minDelay time.Duration
	if maxPerSecond > 0 {
		minDelay = time.Duration(float64(time.Second) / maxPerSecond)
	}
	return &Throttle{
		minDelay:  minDelay,
		maxJitter: maxJitter,
		now:       time.Now,
		sleep:     sleepContext,
		jitter:    randomJitter,
	}
}

func (t *Throttle) MinDelay() time.Duration {
	return t.minDelay
}

// Wait blocks until the next upstream call may start. The call time is
// recorded after the delay.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		elapsed := t.now().Sub(t.last)
		if elapsed < t.minDelay {
			delay := t.minDelay - elapsed + t.jitter(t.maxJitter)
			if err := t.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	t.last = t.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
