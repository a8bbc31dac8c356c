// Package transport defines the uniform playback contract and selects
// between the remote device transport and the local preview fallback
// based on the session's subscription tier.
package transport

import (
	"context"
	"time"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/local"
	"github.com/tessro/cadence/internal/remote"
)

// Transport is the uniform playback contract. Both transports implement
// it; callers never branch on which one is active.
type Transport interface {
	// Init acquires whatever the transport needs before commands work.
	Init(ctx context.Context) error
	// Play starts the given track, or resumes when track is nil.
	Play(ctx context.Context, track *core.Track) error
	// Pause pauses playback in place.
	Pause(ctx context.Context) error
	// Seek moves within the current track.
	Seek(ctx context.Context, position time.Duration) error
	// SetVolume sets the playback volume (0-100).
	SetVolume(ctx context.Context, percent int) error
	// Close releases the transport.
	Close() error
}

var (
	_ Transport = (*remote.Adapter)(nil)
	_ Transport = (*local.Player)(nil)
)
