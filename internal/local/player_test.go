package local

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/store"
)

func TestInitReportsReady(t *testing.T) {
	st := store.New()
	p := New(st, 0, nil)

	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !st.Snapshot().Ready {
		t.Error("store Ready = false, want true")
	}
}

func TestPlayWithoutPreviewFails(t *testing.T) {
	st := store.New()
	p := New(st, 0, nil)

	track := &core.Track{ID: "a", URI: "cadence:track:a"}
	st.PlayTrack(*track, nil)

	err := p.Play(context.Background(), track)
	if !errors.Is(err, cadenceerrors.ErrPreviewUnavailable) {
		t.Fatalf("Play() error = %v, want ErrPreviewUnavailable", err)
	}

	snap := st.Snapshot()
	if snap.Playing {
		t.Error("store Playing = true, want false")
	}
	if snap.LastError != "No preview available for this track" {
		t.Errorf("store LastError = %q", snap.LastError)
	}
}

func TestPlayPreviewFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	st := store.New()
	p := New(st, 0, nil)

	track := &core.Track{ID: "a", PreviewURL: server.URL + "/clip.mp3"}
	err := p.Play(context.Background(), track)
	if !errors.Is(err, cadenceerrors.ErrPreviewUnavailable) {
		t.Fatalf("Play() error = %v, want ErrPreviewUnavailable", err)
	}
}

func TestPlayPreviewFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	st := store.New()
	p := New(st, 0, nil)

	track := &core.Track{ID: "a", PreviewURL: server.URL + "/clip.mp3"}
	err := p.Play(context.Background(), track)
	if !errors.Is(err, cadenceerrors.ErrTransient) {
		t.Fatalf("Play() error = %v, want ErrTransient", err)
	}
}

func TestResumeWithoutClipFailsSoftly(t *testing.T) {
	p := New(store.New(), 0, nil)

	err := p.Play(context.Background(), nil)
	if !errors.Is(err, cadenceerrors.ErrTransportNotReady) {
		t.Errorf("Play(nil) error = %v, want ErrTransportNotReady", err)
	}
}

func TestPauseWithoutClipFailsSoftly(t *testing.T) {
	p := New(store.New(), 0, nil)

	err := p.Pause(context.Background())
	if !errors.Is(err, cadenceerrors.ErrTransportNotReady) {
		t.Errorf("Pause() error = %v, want ErrTransportNotReady", err)
	}
}

func TestLevelToVolume(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
	}{
		{0, -10},
		{25, -2},
		{50, -1},
		{100, 0},
		{150, 0},
	}

	for _, tt := range tests {
		got := levelToVolume(tt.percent)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("levelToVolume(%d) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestSetVolumeBeforeClipLoads(t *testing.T) {
	st := store.New()
	p := New(st, 0, nil)

	// No clip loaded yet; the level is remembered for the next clip.
	if err := p.SetVolume(context.Background(), 30); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	p.mu.Lock()
	got := p.percent
	p.mu.Unlock()
	if got != 30 {
		t.Errorf("stored percent = %d, want 30", got)
	}
}

func TestCloseWithoutClip(t *testing.T) {
	st := store.New()
	st.SetReady(true)
	p := New(st, 10*time.Millisecond, nil)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if st.Snapshot().Ready {
		t.Error("store Ready = true after Close, want false")
	}
}
