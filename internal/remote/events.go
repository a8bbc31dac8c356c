package remote

import (
	"context"
	"time"
)

// EventSink receives lifecycle and state events from the streaming SDK.
// The adapter implements it and forwards into the store via explicit calls.
type EventSink interface {
	// OnReady fires when the SDK reports a usable device id.
	OnReady(deviceID string)
	// OnNotReady fires when the SDK reports the device offline.
	OnNotReady(deviceID string)
	// OnStateChanged fires on server-driven playback state changes. These
	// arrive sparsely; position polling fills the gaps.
	OnStateChanged(state State)
	// OnError fires on SDK-level failures.
	OnError(err error)
}

// State is a server-reported playback state snapshot.
type State struct {
	TrackURI string
	Paused   bool
	Position time.Duration
	Duration time.Duration
}

// SDK abstracts the remote streaming SDK: it registers a device session
// with the provider and reports lifecycle events to the sink.
type SDK interface {
	// Connect registers the device session. Events are delivered to the
	// sink from the moment Connect is called.
	Connect(ctx context.Context, sink EventSink) error
	// Close tears down the device session.
	Close() error
}
