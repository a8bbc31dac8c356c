package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/store"
)

// fakeSDK reports ready with a fixed device id as soon as Connect runs.
type fakeSDK struct {
	deviceID string
	closed   bool
}

func (f *fakeSDK) Connect(ctx context.Context, sink EventSink) error {
	sink.OnReady(f.deviceID)
	return nil
}

func (f *fakeSDK) Close() error {
	f.closed = true
	return nil
}

// deviceServer is a scriptable device API for tests.
type deviceServer struct {
	*httptest.Server
	transferCalls atomic.Int32
	playCalls     atomic.Int32
	playStatuses  chan int // next statuses for the play endpoint; empty = 204
}

func newDeviceServer(t *testing.T) *deviceServer {
	t.Helper()
	ds := &deviceServer{playStatuses: make(chan int, 16)}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/me/player":
			// PUT is the transfer call; GET is the position poller, which
			// gets "nothing playing" so it stays out of the assertions.
			if r.Method == http.MethodPut {
				ds.transferCalls.Add(1)
			}
			w.WriteHeader(http.StatusNoContent)
		case "/v1/me/player/play":
			ds.playCalls.Add(1)
			select {
			case status := <-ds.playStatuses:
				w.WriteHeader(status)
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		case "/v1/me/player/pause", "/v1/me/player/seek", "/v1/me/player/volume":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ds.Server.Close)
	return ds
}

func newTestSession(t *testing.T, tokenCalls *atomic.Int32) *session.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/session/token" {
			if tokenCalls != nil {
				tokenCalls.Add(1)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "test-token",
				"expires_in":   3600,
			})
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return session.New(server.URL, nil)
}

func newTestAdapter(t *testing.T, ds *deviceServer, st *store.Store) *Adapter {
	t.Helper()
	policy := Policy{
		MaxAttempts:      3,
		TransferSettle:   time.Millisecond,
		TransientBackoff: time.Millisecond,
		DedupeWindow:     500 * time.Millisecond,
	}
	a := NewAdapter(NewClient(ds.URL, nil), newTestSession(t, nil), st, &fakeSDK{deviceID: "dev-1"}, policy, 10*time.Millisecond, nil)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func trackA() *core.Track {
	return &core.Track{ID: "a", URI: "cadence:track:a", Duration: 3 * time.Minute}
}

func TestInitReportsReady(t *testing.T) {
	ds := newDeviceServer(t)
	st := store.New()
	a := newTestAdapter(t, ds, st)

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if a.Status() != StatusReady {
		t.Errorf("Status() = %v, want ready", a.Status())
	}
	snap := st.Snapshot()
	if !snap.Ready {
		t.Error("store Ready = false, want true")
	}
	if snap.DeviceID != "dev-1" {
		t.Errorf("store DeviceID = %q, want dev-1", snap.DeviceID)
	}
}

func TestInitIdempotent(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.Init(ctx); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if a.Status() != StatusReady {
		t.Errorf("Status() = %v after double init", a.Status())
	}
}

func TestPlayTransfersLazilyThenSticks(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if got := ds.transferCalls.Load(); got != 1 {
		t.Errorf("transfer calls = %d, want 1", got)
	}

	// The sticky flag skips re-transfer on the next play.
	time.Sleep(600 * time.Millisecond) // leave the dedupe window
	if err := a.Play(ctx, &core.Track{ID: "b", URI: "cadence:track:b"}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if got := ds.transferCalls.Load(); got != 1 {
		t.Errorf("transfer calls after second play = %d, want 1 (sticky)", got)
	}
}

func TestPlayDeviceNotFoundRetransfersOnce(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	// Establish the sticky transfer with a successful play, then reset the
	// counters so the assertion covers only the failing command.
	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatal(err)
	}
	ds.transferCalls.Store(0)
	ds.playCalls.Store(0)
	time.Sleep(600 * time.Millisecond)

	// Attempt 1 fails device-not-found; attempt 2 re-transfers and succeeds.
	ds.playStatuses <- http.StatusNotFound

	if err := a.Play(ctx, &core.Track{ID: "b", URI: "cadence:track:b"}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if got := ds.transferCalls.Load(); got != 1 {
		t.Errorf("transfer calls = %d, want exactly 1", got)
	}
	if got := ds.playCalls.Load(); got != 2 {
		t.Errorf("play calls = %d, want 2 (one failed, one successful)", got)
	}
}

func TestPlayForbiddenIsFatal(t *testing.T) {
	ds := newDeviceServer(t)
	st := store.New()
	a := newTestAdapter(t, ds, st)
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	ds.playStatuses <- http.StatusForbidden

	st.PlayTrack(*trackA(), nil)
	err := a.Play(ctx, trackA())
	if !errors.Is(err, cadenceerrors.ErrPlaybackRestricted) {
		t.Fatalf("Play() error = %v, want ErrPlaybackRestricted", err)
	}

	if got := ds.playCalls.Load(); got != 1 {
		t.Errorf("play calls = %d, want 1 (no retry on forbidden)", got)
	}
	snap := st.Snapshot()
	if snap.Playing {
		t.Error("store Playing = true after fatal failure, want false")
	}
	if snap.LastError != "Playback restricted for this account" {
		t.Errorf("store LastError = %q", snap.LastError)
	}
}

func TestPlayTransientRetriesThenSucceeds(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	ds.playStatuses <- http.StatusServiceUnavailable
	ds.playStatuses <- http.StatusBadGateway

	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatalf("Play() error = %v, want success on third attempt", err)
	}
	if got := ds.playCalls.Load(); got != 3 {
		t.Errorf("play calls = %d, want 3", got)
	}
}

func TestPlayRetriesExhausted(t *testing.T) {
	ds := newDeviceServer(t)
	st := store.New()
	a := newTestAdapter(t, ds, st)
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	ds.playStatuses <- http.StatusServiceUnavailable
	ds.playStatuses <- http.StatusServiceUnavailable
	ds.playStatuses <- http.StatusServiceUnavailable

	st.PlayTrack(*trackA(), nil)
	err := a.Play(ctx, trackA())
	if !errors.Is(err, cadenceerrors.ErrPlaybackFailed) {
		t.Fatalf("Play() error = %v, want ErrPlaybackFailed", err)
	}
	if got := ds.playCalls.Load(); got != 3 {
		t.Errorf("play calls = %d, want 3 (attempt budget)", got)
	}
	if st.Snapshot().Playing {
		t.Error("store Playing = true after exhausted retries, want false")
	}
}

func TestPlayDuplicateWithinWindowDropped(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}

	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatal(err)
	}
	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatalf("duplicate Play() error = %v, want silent drop", err)
	}

	if got := ds.playCalls.Load(); got != 1 {
		t.Errorf("play calls = %d, want exactly 1", got)
	}
}

func TestPauseBeforeReadyFailsSoftly(t *testing.T) {
	ds := newDeviceServer(t)
	a := newTestAdapter(t, ds, store.New())

	err := a.Pause(context.Background())
	if !errors.Is(err, cadenceerrors.ErrTransportNotReady) {
		t.Errorf("Pause() error = %v, want ErrTransportNotReady", err)
	}
}

func TestNotReadyResetsTransfer(t *testing.T) {
	ds := newDeviceServer(t)
	st := store.New()
	a := newTestAdapter(t, ds, st)
	ctx := context.Background()

	if err := a.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.Play(ctx, trackA()); err != nil {
		t.Fatal(err)
	}
	if got := ds.transferCalls.Load(); got != 1 {
		t.Fatalf("transfer calls = %d, want 1", got)
	}

	a.OnNotReady("dev-1")
	if st.Snapshot().Ready {
		t.Error("store Ready = true after OnNotReady")
	}

	a.OnReady("dev-1")
	time.Sleep(600 * time.Millisecond)

	// Transfer flag was reset, so the next play transfers again.
	if err := a.Play(ctx, &core.Track{ID: "b", URI: "cadence:track:b"}); err != nil {
		t.Fatal(err)
	}
	if got := ds.transferCalls.Load(); got != 2 {
		t.Errorf("transfer calls = %d, want 2 after device drop", got)
	}
}

func TestOnStateChangedWritesFeedback(t *testing.T) {
	ds := newDeviceServer(t)
	st := store.New()
	a := newTestAdapter(t, ds, st)

	st.PlayTrack(*trackA(), nil)
	a.OnStateChanged(State{TrackURI: "cadence:track:a", Paused: true, Position: 30 * time.Second})

	snap := st.Snapshot()
	if snap.Playing {
		t.Error("store Playing = true, want false after paused event")
	}
	if snap.Position != 30*time.Second {
		t.Errorf("store Position = %v, want 30s", snap.Position)
	}
}
