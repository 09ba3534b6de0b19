package automation

import (
	"context"
	"math/rand/v2"
	"time"
)

// Timing holds every wait the engine performs. The zero value never sleeps,
// which is what tests use.
type Timing struct {
	ElementWait     time.Duration
	LoginSettle     time.Duration
	ResultsWait     time.Duration
	FilterAnimation time.Duration
	ResetSettle     time.Duration
	ApplySettle     time.Duration
	NextPageWait    time.Duration
	PageSettle      time.Duration
	ConfirmWait     time.Duration
	TermPauseMin    time.Duration
	TermPauseMax    time.Duration
}

// DefaultTiming returns the waits tuned for the live site.
func DefaultTiming() Timing {
	return Timing{
		ElementWait:     10 * time.Second,
		LoginSettle:     5 * time.Second,
		ResultsWait:     10 * time.Second,
		FilterAnimation: time.Second,
		ResetSettle:     500 * time.Millisecond,
		ApplySettle:     2 * time.Second,
		NextPageWait:    5 * time.Second,
		PageSettle:      3 * time.Second,
		ConfirmWait:     5 * time.Second,
		TermPauseMin:    3 * time.Second,
		TermPauseMax:    7 * time.Second,
	}
}

// termPause returns a random pause in [TermPauseMin, TermPauseMax].
func (t Timing) termPause() time.Duration {
	if t.TermPauseMax <= t.TermPauseMin {
		return t.TermPauseMin
	}
	return t.TermPauseMin + rand.N(t.TermPauseMax-t.TermPauseMin+1)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
