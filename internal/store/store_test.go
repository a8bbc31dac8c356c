package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessro/cadence/internal/core"
)

func threeTracks() []core.Track {
	return []core.Track{
		{ID: "a", URI: "cadence:track:a", Duration: 180 * time.Second},
		{ID: "b", URI: "cadence:track:b", Duration: 200 * time.Second},
		{ID: "c", URI: "cadence:track:c", Duration: 160 * time.Second},
	}
}

func TestDefaults(t *testing.T) {
	s := New()
	snap := s.Snapshot()

	assert.False(t, snap.Playing)
	assert.Equal(t, 50, snap.Volume)
	assert.Equal(t, core.RepeatOff, snap.Repeat)
	assert.Nil(t, snap.Current())
	assert.False(t, snap.Ready)
	assert.Empty(t, snap.DeviceID)
}

func TestPlayTrackSingle(t *testing.T) {
	s := New()
	track := core.Track{ID: "x", Duration: 120 * time.Second}

	s.PlayTrack(track, nil)

	snap := s.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, 0, snap.Index)
	assert.True(t, snap.Playing)
	assert.True(t, snap.PendingPlay)
	assert.Equal(t, time.Duration(0), snap.Position)
	assert.Equal(t, 120*time.Second, snap.Duration)
}

func TestPlayTrackWithContext(t *testing.T) {
	s := New()
	tracks := threeTracks()

	s.PlayTrack(tracks[1], tracks)

	snap := s.Snapshot()
	assert.Len(t, snap.Queue, 3)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, "b", snap.Current().ID)
}

func TestPlayTrackContextMissingTrack(t *testing.T) {
	s := New()
	outsider := core.Track{ID: "z", Duration: 90 * time.Second}

	s.PlayTrack(outsider, threeTracks())

	snap := s.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, "z", snap.Current().ID)
}

func TestPlayCollectionClampsIndex(t *testing.T) {
	s := New()

	s.PlayCollection(threeTracks(), 99)
	assert.Equal(t, 2, s.Snapshot().Index)

	s.PlayCollection(threeTracks(), -4)
	assert.Equal(t, 0, s.Snapshot().Index)
}

func TestNextRepeatTrackKeepsIndex(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 1)
	s.SetRepeatMode(core.RepeatTrack)
	s.SetPosition(42 * time.Second)

	target := s.NextTrack()

	require.NotNil(t, target)
	assert.Equal(t, "b", target.ID)
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, time.Duration(0), snap.Position)
}

func TestNextRepeatContextWrapsFullCycle(t *testing.T) {
	s := New()
	tracks := threeTracks()
	s.PlayCollection(tracks, 1)
	s.SetRepeatMode(core.RepeatContext)

	for i := 0; i < len(tracks); i++ {
		require.NotNil(t, s.NextTrack())
	}

	assert.Equal(t, 1, s.Snapshot().Index, "full cycle should return to the starting index")
}

func TestNextAtEndRepeatOffStops(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 0)

	require.NotNil(t, s.NextTrack()) // -> index 1
	require.NotNil(t, s.NextTrack()) // -> index 2
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Index)
	assert.True(t, snap.Playing)

	target := s.NextTrack() // past the end
	assert.Nil(t, target)

	snap = s.Snapshot()
	assert.False(t, snap.Playing)
	assert.Equal(t, time.Duration(0), snap.Position)
	assert.Equal(t, 2, snap.Index, "index must not move past the end")
}

func TestNextEmptyQueue(t *testing.T) {
	s := New()
	assert.Nil(t, s.NextTrack())
}

func TestPreviousDeepIntoTrackRestarts(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 2)
	s.SetPosition(10 * time.Second)

	target := s.PreviousTrack()

	require.NotNil(t, target)
	assert.Equal(t, "c", target.ID)
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Index, "index must not change past the restart threshold")
	assert.Equal(t, time.Duration(0), snap.Position)
}

func TestPreviousEarlyStepsBack(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 2)
	s.SetPosition(2 * time.Second)

	target := s.PreviousTrack()

	require.NotNil(t, target)
	assert.Equal(t, "b", target.ID)
	assert.Equal(t, 1, s.Snapshot().Index)
}

func TestPreviousAtStartRestartsInsteadOfUnderflow(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 0)
	s.SetPosition(1 * time.Second)

	target := s.PreviousTrack()

	require.NotNil(t, target)
	assert.Equal(t, "a", target.ID)
	assert.Equal(t, 0, s.Snapshot().Index)
}

func TestSetVolumeClamps(t *testing.T) {
	s := New()

	s.SetVolume(-5)
	assert.Equal(t, 0, s.Snapshot().Volume)

	s.SetVolume(150)
	assert.Equal(t, 100, s.Snapshot().Volume)

	s.SetVolume(70)
	assert.Equal(t, 70, s.Snapshot().Volume)
}

func TestToggleMuteRestoresVolume(t *testing.T) {
	s := New()
	s.SetVolume(63)

	s.ToggleMute()
	snap := s.Snapshot()
	assert.True(t, snap.Muted)

	s.ToggleMute()
	snap = s.Snapshot()
	assert.False(t, snap.Muted)
	assert.Equal(t, 63, snap.Volume)
}

func TestSetMutedThenToggleKeepsVolume(t *testing.T) {
	s := New()
	s.SetVolume(25)

	// Mute restored from persistence rather than toggled on.
	s.SetMuted(true)

	s.ToggleMute()
	snap := s.Snapshot()
	assert.False(t, snap.Muted)
	assert.Equal(t, 25, snap.Volume)
}

func TestSetPositionClampsToDuration(t *testing.T) {
	s := New()
	s.PlayTrack(core.Track{ID: "x", Duration: 100 * time.Second}, nil)

	s.SetPosition(500 * time.Second)
	assert.Equal(t, 100*time.Second, s.Snapshot().Position)

	s.SetPosition(-3 * time.Second)
	assert.Equal(t, time.Duration(0), s.Snapshot().Position)
}

func TestSetQueueEmptyStopsPlayback(t *testing.T) {
	s := New()
	s.PlayCollection(threeTracks(), 0)

	s.SetQueue(nil, 0)

	snap := s.Snapshot()
	assert.False(t, snap.Playing)
	assert.Nil(t, snap.Current())
	assert.Equal(t, -1, snap.Index)
}

func TestIntentGenerationAdvances(t *testing.T) {
	s := New()
	tracks := threeTracks()

	s.PlayCollection(tracks, 0)
	g1 := s.Snapshot().IntentGeneration

	s.NextTrack()
	g2 := s.Snapshot().IntentGeneration

	assert.Greater(t, g2, g1)
}

func TestListenerNotifiedSynchronously(t *testing.T) {
	s := New()
	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) {
		seen = append(seen, snap)
	})

	s.SetVolume(30)

	require.Len(t, seen, 1)
	assert.Equal(t, 30, seen[0].Volume)
}

func TestListenerReentrantMutation(t *testing.T) {
	s := New()
	cleared := false
	s.Subscribe(func(snap Snapshot) {
		// A listener may mutate the store again; this must not deadlock.
		if snap.PendingPlay && !cleared {
			cleared = true
			s.SetPendingPlay(false)
		}
	})

	s.PlayTrack(core.Track{ID: "x", Duration: time.Minute}, nil)

	assert.False(t, s.Snapshot().PendingPlay)
}
