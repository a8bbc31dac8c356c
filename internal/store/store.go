// Package store is the single source of truth for playback state: queue,
// current track, transport position, volume, modes, device readiness and
// the deferred play intent. It is mutated by user commands and by transport
// feedback, and notifies listeners synchronously after every mutation.
package store

import (
	"sync"
	"time"

	"github.com/tessro/cadence/internal/core"
)

// previousRestartThreshold: previous() restarts the current track instead
// of navigating back once playback is this far in.
const previousRestartThreshold = 3 * time.Second

// Snapshot is an immutable copy of the playback state.
type Snapshot struct {
	Queue    []core.Track
	Index    int
	Playing  bool
	Position time.Duration
	Duration time.Duration
	Volume   int
	Muted    bool
	Shuffled bool
	Repeat   core.RepeatMode

	DeviceID    string
	Ready       bool
	PremiumTier bool
	PendingPlay bool

	// IntentGeneration increments on every recorded play intent. The bridge
	// uses it to execute each logical intent at most once.
	IntentGeneration uint64

	// LastError is the most recent user-visible failure message, or "".
	LastError string
}

// Current returns the current track, or nil if the queue is empty.
func (s *Snapshot) Current() *core.Track {
	if len(s.Queue) == 0 || s.Index < 0 || s.Index >= len(s.Queue) {
		return nil
	}
	return &s.Queue[s.Index]
}

// Listener is invoked synchronously after every store mutation.
type Listener func(Snapshot)

// Store holds the mutable playback state behind a mutex. No operation
// fails; invalid values are clamped.
type Store struct {
	mu            sync.Mutex
	snap          Snapshot
	preMuteVolume int
	listeners     []Listener
}

// New creates a store with controller-start defaults: not playing,
// volume 50, repeat off.
func New() *Store {
	return &Store{
		snap: Snapshot{
			Index:  -1,
			Volume: 50,
			Repeat: core.RepeatOff,
		},
	}
}

// Subscribe registers a listener. Listeners run synchronously, in
// registration order, after each mutation completes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copySnapshot()
}

// copySnapshot must be called with the lock held.
func (s *Store) copySnapshot() Snapshot {
	snap := s.snap
	snap.Queue = make([]core.Track, len(s.snap.Queue))
	copy(snap.Queue, s.snap.Queue)
	return snap
}

// mutate runs fn under the lock, then notifies listeners outside it.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.copySnapshot()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// SetQueue replaces the queue wholesale and clamps the index.
func (s *Store) SetQueue(tracks []core.Track, index int) {
	s.mutate(func() {
		s.snap.Queue = make([]core.Track, len(tracks))
		copy(s.snap.Queue, tracks)
		if len(tracks) == 0 {
			s.snap.Index = -1
			s.snap.Playing = false
			s.snap.Position = 0
			s.snap.Duration = 0
			return
		}
		s.snap.Index = clamp(index, 0, len(tracks)-1)
	})
}

// SetPosition updates the transport position, clamped to [0, duration].
func (s *Store) SetPosition(pos time.Duration) {
	s.mutate(func() {
		s.snap.Position = clampDuration(pos, 0, s.snap.Duration)
	})
}

// SetDuration overrides the track duration, clamping position to fit. The
// fallback transport reports the preview clip length here, which is
// shorter than the catalog duration of the full track.
func (s *Store) SetDuration(d time.Duration) {
	s.mutate(func() {
		if d < 0 {
			d = 0
		}
		s.snap.Duration = d
		s.snap.Position = clampDuration(s.snap.Position, 0, d)
	})
}

// SetPlaying updates the playing flag, typically from transport feedback.
func (s *Store) SetPlaying(playing bool) {
	s.mutate(func() {
		s.snap.Playing = playing
	})
}

// SetVolume sets the volume, clamped to [0, 100].
func (s *Store) SetVolume(volume int) {
	s.mutate(func() {
		s.snap.Volume = clamp(volume, 0, 100)
	})
}

// SetMuted restores persisted mute state without touching the volume.
// Entering mute this way seeds the pre-mute volume from the current one,
// so the first unmute after a restart restores the persisted level.
func (s *Store) SetMuted(muted bool) {
	s.mutate(func() {
		if muted && !s.snap.Muted {
			s.preMuteVolume = s.snap.Volume
		}
		s.snap.Muted = muted
	})
}

// ToggleMute flips mute. The pre-mute volume is remembered and restored
// exactly on unmute.
func (s *Store) ToggleMute() {
	s.mutate(func() {
		if s.snap.Muted {
			s.snap.Muted = false
			s.snap.Volume = s.preMuteVolume
		} else {
			s.preMuteVolume = s.snap.Volume
			s.snap.Muted = true
		}
	})
}

// ToggleShuffle flips the shuffle flag.
func (s *Store) ToggleShuffle() {
	s.mutate(func() {
		s.snap.Shuffled = !s.snap.Shuffled
	})
}

// SetRepeatMode sets the repeat mode directly.
func (s *Store) SetRepeatMode(mode core.RepeatMode) {
	s.mutate(func() {
		s.snap.Repeat = mode
	})
}

// CycleRepeatMode advances off → track → context → off.
func (s *Store) CycleRepeatMode() {
	s.mutate(func() {
		s.snap.Repeat = s.snap.Repeat.Cycle()
	})
}

// SetDeviceID records the remote device id ("" when the device drops).
func (s *Store) SetDeviceID(id string) {
	s.mutate(func() {
		s.snap.DeviceID = id
	})
}

// SetReady updates transport readiness.
func (s *Store) SetReady(ready bool) {
	s.mutate(func() {
		s.snap.Ready = ready
	})
}

// SetPremiumTier records the session subscription tier.
func (s *Store) SetPremiumTier(premium bool) {
	s.mutate(func() {
		s.snap.PremiumTier = premium
	})
}

// SetPendingPlay updates the deferred-play intent flag. The bridge clears
// it the instant it executes the deferred call.
func (s *Store) SetPendingPlay(pending bool) {
	s.mutate(func() {
		s.snap.PendingPlay = pending
	})
}

// SetLastError records a user-visible failure message ("" clears it).
func (s *Store) SetLastError(msg string) {
	s.mutate(func() {
		s.snap.LastError = msg
	})
}

// PlayTrack records the intent to play a single track. If contextQueue
// contains the track, the whole context becomes the queue positioned at the
// track; otherwise the queue is just the track itself. This only records
// intent — no transport call happens here.
func (s *Store) PlayTrack(track core.Track, contextQueue []core.Track) {
	s.mutate(func() {
		index := -1
		for i, t := range contextQueue {
			if t.ID == track.ID {
				index = i
				break
			}
		}

		if index >= 0 {
			s.snap.Queue = make([]core.Track, len(contextQueue))
			copy(s.snap.Queue, contextQueue)
			s.snap.Index = index
		} else {
			s.snap.Queue = []core.Track{track}
			s.snap.Index = 0
		}

		s.recordIntent(track)
	})
}

// PlayCollection records the intent to play a track collection starting at
// startIndex (clamped).
func (s *Store) PlayCollection(tracks []core.Track, startIndex int) {
	s.mutate(func() {
		if len(tracks) == 0 {
			return
		}
		s.snap.Queue = make([]core.Track, len(tracks))
		copy(s.snap.Queue, tracks)
		s.snap.Index = clamp(startIndex, 0, len(tracks)-1)
		s.recordIntent(s.snap.Queue[s.snap.Index])
	})
}

// recordIntent must be called with the lock held.
func (s *Store) recordIntent(track core.Track) {
	s.snap.Playing = true
	s.snap.PendingPlay = true
	s.snap.Position = 0
	s.snap.Duration = track.Duration
	s.snap.IntentGeneration++
	s.snap.LastError = ""
}

// NextTrack advances queue navigation and records a play intent for the
// resulting track. With repeat-track the current track restarts without
// advancing. Past the end, repeat-context wraps to 0; otherwise playback
// stops, position resets and the index stays put. Returns the track a play
// was recorded for, or nil if playback stopped or the queue is empty.
func (s *Store) NextTrack() *core.Track {
	var target *core.Track
	s.mutate(func() {
		if len(s.snap.Queue) == 0 {
			return
		}

		if s.snap.Repeat == core.RepeatTrack {
			track := s.snap.Queue[s.snap.Index]
			s.recordIntent(track)
			target = &track
			return
		}

		next := s.snap.Index + 1
		if next >= len(s.snap.Queue) {
			if s.snap.Repeat == core.RepeatContext {
				next = 0
			} else {
				s.snap.Playing = false
				s.snap.Position = 0
				return
			}
		}

		s.snap.Index = next
		track := s.snap.Queue[next]
		s.recordIntent(track)
		target = &track
	})
	return target
}

// PreviousTrack navigates backwards and records a play intent. More than
// 3000ms into a track it restarts the current track; otherwise it steps
// back one index, clamped at 0 (restarting the first track).
func (s *Store) PreviousTrack() *core.Track {
	var target *core.Track
	s.mutate(func() {
		if len(s.snap.Queue) == 0 {
			return
		}

		if s.snap.Position <= previousRestartThreshold && s.snap.Index > 0 {
			s.snap.Index--
		}

		track := s.snap.Queue[s.snap.Index]
		s.recordIntent(track)
		target = &track
	})
	return target
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
