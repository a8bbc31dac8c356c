// Package controller is the command surface over playback: it records
// intent in the store, lets the bridge turn intents into transport calls,
// and issues the direct commands (pause, seek, volume) itself.
package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/settings"
	"github.com/tessro/cadence/internal/store"
)

// Controller exposes the playback operations the CLI calls. All state
// goes through the store; the bridge handles deferred play dispatch.
type Controller struct {
	store    *store.Store
	provider TransportProvider
	bridge   *Bridge
	settings *settings.Store
	log      *slog.Logger
}

// New wires a controller. settingsStore may be nil; volume and mute are
// then simply not persisted. Persisted volume and mute are restored into
// the store before the bridge starts watching it.
func New(provider TransportProvider, st *store.Store, settingsStore *settings.Store, log *slog.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}

	c := &Controller{
		store:    st,
		provider: provider,
		bridge:   NewBridge(provider, st, log),
		settings: settingsStore,
		log:      log,
	}

	if settingsStore != nil {
		if v, err := settingsStore.Get(); err == nil {
			st.SetVolume(v.Volume)
			st.SetMuted(v.Muted)
		} else {
			log.Warn("could not load persisted settings", "error", err)
		}
	}

	c.bridge.Start()
	return c
}

// PlayTrack plays a track, optionally inside a context queue. Invoking it
// on the track that is already current toggles pause/resume instead of
// restarting from zero.
func (c *Controller) PlayTrack(ctx context.Context, track core.Track, contextQueue []core.Track) error {
	snap := c.store.Snapshot()
	if cur := snap.Current(); cur != nil && cur.ID == track.ID {
		if snap.Playing {
			return c.Pause(ctx)
		}
		return c.Resume(ctx)
	}

	c.store.PlayTrack(track, contextQueue)
	return nil
}

// PlayCollection plays a track collection starting at startIndex.
func (c *Controller) PlayCollection(ctx context.Context, tracks []core.Track, startIndex int) error {
	c.store.PlayCollection(tracks, startIndex)
	return nil
}

// Pause pauses playback. The optimistic store write happens first so the
// UI reacts immediately; the transport call follows.
func (c *Controller) Pause(ctx context.Context) error {
	c.store.SetPlaying(false)

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.Pause(ctx)
}

// Resume resumes the current playback without restarting the track.
func (c *Controller) Resume(ctx context.Context) error {
	c.store.SetPlaying(true)

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.Play(ctx, nil)
}

// Next advances to the next track per the repeat mode. When navigation
// runs off the end of the queue, playback stops.
func (c *Controller) Next(ctx context.Context) error {
	if target := c.store.NextTrack(); target != nil {
		return nil // the bridge dispatches the recorded intent
	}

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.Pause(ctx)
}

// Previous restarts the current track when more than a few seconds in,
// otherwise steps back one queue position.
func (c *Controller) Previous(ctx context.Context) error {
	c.store.PreviousTrack()
	return nil
}

// Seek moves within the current track. The store clamps the position to
// the track bounds; the clamped value is what the transport receives.
func (c *Controller) Seek(ctx context.Context, position time.Duration) error {
	c.store.SetPosition(position)
	clamped := c.store.Snapshot().Position

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.Seek(ctx, clamped)
}

// SetVolume sets the volume (clamped to 0-100), pushes it to the
// transport and persists it.
func (c *Controller) SetVolume(ctx context.Context, volume int) error {
	c.store.SetVolume(volume)
	snap := c.store.Snapshot()

	c.persistSettings(snap)

	if snap.Muted {
		return nil // the transport stays silenced until unmute
	}

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.SetVolume(ctx, snap.Volume)
}

// ToggleMute flips mute. The device API has no mute switch, so mute is
// volume zero on the transport; the pre-mute level comes back on unmute.
func (c *Controller) ToggleMute(ctx context.Context) error {
	c.store.ToggleMute()
	snap := c.store.Snapshot()

	c.persistSettings(snap)

	target := snap.Volume
	if snap.Muted {
		target = 0
	}

	tr, err := c.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	return tr.SetVolume(ctx, target)
}

// ToggleShuffle flips shuffle. Navigation order itself is unaffected;
// the flag is carried for the UI and future queue builds.
func (c *Controller) ToggleShuffle() {
	c.store.ToggleShuffle()
}

// CycleRepeat advances the repeat mode off → track → context → off.
func (c *Controller) CycleRepeat() {
	c.store.CycleRepeatMode()
}

// SetRepeat sets the repeat mode directly.
func (c *Controller) SetRepeat(mode core.RepeatMode) {
	c.store.SetRepeatMode(mode)
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() store.Snapshot {
	return c.store.Snapshot()
}

// LastError returns the most recent user-visible failure message, or "".
func (c *Controller) LastError() string {
	return c.store.Snapshot().LastError
}

// Close drains in-flight dispatches. The transport itself is owned by the
// selector and closed by the caller.
func (c *Controller) Close() error {
	c.bridge.Wait()
	return nil
}

// persistSettings writes volume and mute through to disk. Only those two
// fields survive restarts.
func (c *Controller) persistSettings(snap store.Snapshot) {
	if c.settings == nil {
		return
	}
	if err := c.settings.Save(snap.Volume, snap.Muted); err != nil {
		c.log.Warn("could not persist settings", "error", err)
	}
}
