package remote

import (
	"context"
	"time"
)

// Policy is the retry policy applied uniformly to every remote command:
// a bounded attempt budget, a settle wait after device transfer, and a
// short delay before retrying transient provider failures.
type Policy struct {
	// MaxAttempts is the total attempt budget (initial + retries).
	MaxAttempts int
	// TransferSettle is how long to wait after a transfer call for the
	// remote side to register the device.
	TransferSettle time.Duration
	// TransientBackoff is the delay before retrying a transient failure.
	TransientBackoff time.Duration
	// DedupeWindow is how long an identical command target is considered a
	// duplicate and dropped silently.
	DedupeWindow time.Duration
}

// DefaultPolicy returns the standard command policy: 3 attempts total,
// 300ms transfer settle, 250ms transient backoff, 500ms dedupe window.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		TransferSettle:   300 * time.Millisecond,
		TransientBackoff: 250 * time.Millisecond,
		DedupeWindow:     500 * time.Millisecond,
	}
}

// normalize fills zero values so a partially configured policy still has a
// sane attempt budget.
func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.TransferSettle == 0 {
		p.TransferSettle = d.TransferSettle
	}
	if p.TransientBackoff == 0 {
		p.TransientBackoff = d.TransientBackoff
	}
	if p.DedupeWindow == 0 {
		p.DedupeWindow = d.DedupeWindow
	}
	return p
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
