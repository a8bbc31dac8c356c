package remote

import (
	"context"
	"testing"
	"time"
)

func TestPolicyNormalizeFillsZeroes(t *testing.T) {
	p := Policy{}.normalize()
	d := DefaultPolicy()

	if p.MaxAttempts != d.MaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", p.MaxAttempts, d.MaxAttempts)
	}
	if p.TransferSettle != d.TransferSettle {
		t.Errorf("TransferSettle = %v, want %v", p.TransferSettle, d.TransferSettle)
	}
	if p.DedupeWindow != d.DedupeWindow {
		t.Errorf("DedupeWindow = %v, want %v", p.DedupeWindow, d.DedupeWindow)
	}
}

func TestPolicyNormalizeKeepsValues(t *testing.T) {
	p := Policy{
		MaxAttempts:      5,
		TransferSettle:   time.Second,
		TransientBackoff: time.Second,
		DedupeWindow:     time.Second,
	}.normalize()

	if p.MaxAttempts != 5 || p.TransferSettle != time.Second {
		t.Errorf("normalize() altered configured values: %+v", p)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)
	if err == nil {
		t.Fatal("sleep() error = nil, want context error")
	}
	if time.Since(start) > time.Second {
		t.Error("sleep() did not return promptly on cancellation")
	}
}
