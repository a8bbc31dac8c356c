// Package remote adapts the device-based streaming API to the playback
// transport contract: device acquisition, the device-transfer protocol,
// retriable command dispatch, event ingestion and position polling.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/store"
)

// Status is the adapter readiness state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusReady
	StatusNotReady
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusNotReady:
		return "not-ready"
	default:
		return "unknown"
	}
}

// resumeTarget is the dedupe key for a play command with no URI.
const resumeTarget = "resume"

// Adapter drives the remote transport. It implements EventSink for SDK
// callbacks and forwards all feedback into the store.
type Adapter struct {
	client       *Client
	session      *session.Client
	store        *store.Store
	sdk          SDK
	policy       Policy
	pollInterval time.Duration
	log          *slog.Logger

	mu           sync.Mutex
	status       Status
	deviceID     string
	transferred  bool
	lastTarget   string
	lastDispatch time.Time
	inFlight     bool
	pollCancel   context.CancelFunc

	wg sync.WaitGroup
}

// NewAdapter creates a remote transport adapter. pollInterval governs how
// often the position poller runs while the device is ready.
func NewAdapter(client *Client, sess *session.Client, st *store.Store, sdk SDK, policy Policy, pollInterval time.Duration, log *slog.Logger) *Adapter {
	if log == nil {
		log = logger.Discard()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Adapter{
		client:       client,
		session:      sess,
		store:        st,
		sdk:          sdk,
		policy:       policy.normalize(),
		pollInterval: pollInterval,
		log:          log,
	}
}

// Init connects the SDK and waits for the device to come up via OnReady.
// Idempotent: a second call while initializing or ready is a no-op.
func (a *Adapter) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.status == StatusInitializing || a.status == StatusReady {
		a.mu.Unlock()
		return nil
	}
	a.status = StatusInitializing
	a.mu.Unlock()

	if err := a.sdk.Connect(ctx, a); err != nil {
		a.mu.Lock()
		a.status = StatusUninitialized
		a.mu.Unlock()
		return fmt.Errorf("sdk connect: %w", err)
	}
	return nil
}

// Status returns the current readiness state.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// OnReady implements EventSink. Entered when the SDK reports a usable
// device id; starts position polling.
func (a *Adapter) OnReady(deviceID string) {
	a.mu.Lock()
	a.status = StatusReady
	a.deviceID = deviceID
	a.startPollingLocked()
	a.mu.Unlock()

	a.log.Info("remote device ready", "device_id", deviceID)
	a.store.SetDeviceID(deviceID)
	a.store.SetReady(true)
}

// OnNotReady implements EventSink. The device dropped: polling stops and
// the transfer flag resets so the next play re-transfers.
func (a *Adapter) OnNotReady(deviceID string) {
	a.mu.Lock()
	a.status = StatusNotReady
	a.transferred = false
	a.stopPollingLocked()
	a.mu.Unlock()

	a.log.Warn("remote device offline", "device_id", deviceID)
	a.store.SetReady(false)
}

// OnStateChanged implements EventSink. Server-driven events are sparse;
// they and the poller both write "most recent known truth" into the store.
func (a *Adapter) OnStateChanged(state State) {
	a.store.SetPosition(state.Position)
	a.store.SetPlaying(!state.Paused)
}

// OnError implements EventSink.
func (a *Adapter) OnError(err error) {
	a.log.Error("sdk error", "error", err)
	a.store.SetLastError(cadenceerrors.UserMessage(err))
}

// Play dispatches a play command through the retrying, transfer-aware
// path. A nil track resumes current playback. Duplicate requests for the
// same target within the dedupe window, and requests while another command
// is in flight, are dropped silently.
func (a *Adapter) Play(ctx context.Context, track *core.Track) error {
	target := resumeTarget
	uri := ""
	if track != nil {
		uri = track.URI
		target = uri
	}

	a.mu.Lock()
	if target == a.lastTarget && time.Since(a.lastDispatch) < a.policy.DedupeWindow {
		a.mu.Unlock()
		a.log.Debug("duplicate play dropped", "target", target)
		return nil
	}
	if a.inFlight {
		a.mu.Unlock()
		a.log.Debug("command in flight, play dropped", "target", target)
		return nil
	}
	a.inFlight = true
	a.lastTarget = target
	a.lastDispatch = time.Now()
	a.mu.Unlock()

	intentGen := a.store.Snapshot().IntentGeneration

	err := a.dispatchPlay(ctx, uri)

	a.mu.Lock()
	a.inFlight = false
	a.mu.Unlock()

	if err != nil {
		// A newer intent may have superseded this command while it was
		// resolving; its result must not clobber the newer state.
		if a.store.Snapshot().IntentGeneration != intentGen {
			a.log.Debug("stale play result discarded", "target", target, "error", err)
			return nil
		}
		a.store.SetPlaying(false)
		a.store.SetLastError(cadenceerrors.UserMessage(err))
		return err
	}

	a.store.SetLastError("")
	return nil
}

// dispatchPlay runs the bounded-retry command loop: per attempt, refresh
// the credential, transfer if needed, then issue the command. The outcome
// classification drives the next action.
func (a *Adapter) dispatchPlay(ctx context.Context, uri string) error {
	var lastErr error

	for attempt := 1; attempt <= a.policy.MaxAttempts; attempt++ {
		token, err := a.session.AccessToken(ctx)
		if err != nil {
			return err
		}

		a.mu.Lock()
		deviceID := a.deviceID
		needTransfer := !a.transferred || attempt > 1
		a.mu.Unlock()

		if deviceID == "" {
			return cadenceerrors.ErrDeviceUnavailable
		}

		if needTransfer {
			if err := a.transfer(ctx, token, deviceID); err != nil {
				lastErr = err
				if cadenceerrors.Fatal(err) {
					return err
				}
				if !cadenceerrors.Retriable(err) {
					return fmt.Errorf("%w: %v", cadenceerrors.ErrPlaybackFailed, err)
				}
				continue
			}
		}

		err = a.client.Play(ctx, token, deviceID, uri, 0)
		if err == nil {
			a.log.Debug("play dispatched", "uri", uri, "attempt", attempt)
			return nil
		}
		lastErr = err

		switch {
		case cadenceerrors.Fatal(err):
			return err
		case errors.Is(err, cadenceerrors.ErrDeviceUnavailable):
			a.mu.Lock()
			a.transferred = false
			a.mu.Unlock()
			a.log.Warn("device not found, will re-transfer", "attempt", attempt)
		case errors.Is(err, cadenceerrors.ErrAuthFailure):
			a.session.Invalidate()
			a.log.Warn("credential expired, will refresh", "attempt", attempt)
		case errors.Is(err, cadenceerrors.ErrTransient):
			a.log.Warn("transient provider error", "attempt", attempt, "error", err)
			if err := sleep(ctx, a.policy.TransientBackoff); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %v", cadenceerrors.ErrPlaybackFailed, err)
		}
	}

	if errors.Is(lastErr, cadenceerrors.ErrDeviceUnavailable) {
		return lastErr
	}
	return fmt.Errorf("%w: %v", cadenceerrors.ErrPlaybackFailed, lastErr)
}

// transfer performs the device-transfer protocol step and waits briefly
// for the remote side to register it. Success is remembered so subsequent
// plays skip re-transfer until a failure resets the flag.
func (a *Adapter) transfer(ctx context.Context, token, deviceID string) error {
	if err := a.client.TransferPlayback(ctx, token, deviceID); err != nil {
		return err
	}
	if err := sleep(ctx, a.policy.TransferSettle); err != nil {
		return err
	}

	a.mu.Lock()
	a.transferred = true
	a.mu.Unlock()

	a.log.Debug("playback transferred", "device_id", deviceID)
	return nil
}

// Pause dispatches a pause. Fails softly when the transport is not ready.
func (a *Adapter) Pause(ctx context.Context) error {
	token, deviceID, err := a.commandPrereqs(ctx)
	if err != nil {
		return err
	}
	return a.client.Pause(ctx, token, deviceID)
}

// Seek seeks within the current track.
func (a *Adapter) Seek(ctx context.Context, position time.Duration) error {
	token, deviceID, err := a.commandPrereqs(ctx)
	if err != nil {
		return err
	}
	return a.client.Seek(ctx, token, deviceID, position)
}

// SetVolume sets the device volume (0-100, caller clamps).
func (a *Adapter) SetVolume(ctx context.Context, percent int) error {
	token, deviceID, err := a.commandPrereqs(ctx)
	if err != nil {
		return err
	}
	return a.client.SetVolume(ctx, token, deviceID, percent)
}

func (a *Adapter) commandPrereqs(ctx context.Context) (token, deviceID string, err error) {
	a.mu.Lock()
	deviceID = a.deviceID
	ready := a.status == StatusReady
	a.mu.Unlock()

	if !ready || deviceID == "" {
		return "", "", cadenceerrors.ErrTransportNotReady
	}

	token, err = a.session.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	return token, deviceID, nil
}

// Close releases the device session: polling stops, the SDK disconnects
// and readiness is withdrawn from the store.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.stopPollingLocked()
	a.status = StatusUninitialized
	a.deviceID = ""
	a.transferred = false
	a.mu.Unlock()

	a.wg.Wait()
	a.store.SetReady(false)
	a.store.SetDeviceID("")
	return a.sdk.Close()
}

// startPollingLocked must be called with the lock held.
func (a *Adapter) startPollingLocked() {
	if a.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.pollCancel = cancel
	a.wg.Add(1)
	go a.pollLoop(ctx)
}

// stopPollingLocked must be called with the lock held.
func (a *Adapter) stopPollingLocked() {
	if a.pollCancel != nil {
		a.pollCancel()
		a.pollCancel = nil
	}
}

// pollLoop fetches the provider position at a fixed interval while the
// device is ready. Server events are too sparse for a smooth progress
// indicator, so the poller fills in between them.
func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			token, err := a.session.AccessToken(ctx)
			if err != nil {
				continue
			}
			state, err := a.client.GetPlayerState(ctx, token)
			if err != nil || state == nil {
				continue
			}
			a.store.SetPosition(time.Duration(state.ProgressMS) * time.Millisecond)
			a.store.SetPlaying(state.IsPlaying)
		}
	}
}
