package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/store"
	"github.com/tessro/cadence/internal/transport"
)

// TransportProvider yields the active transport, acquiring it on first use.
type TransportProvider interface {
	Acquire(ctx context.Context) (transport.Transport, error)
}

// dispatchTimeout bounds a single deferred play dispatch, including
// transport acquisition and the full retry budget.
const dispatchTimeout = 30 * time.Second

// Bridge is the single point where recorded play intents become transport
// calls. It watches the store and fires exactly once per intent, as soon
// as both an intent and a ready transport exist, whichever arrives last.
type Bridge struct {
	provider TransportProvider
	store    *store.Store
	log      *slog.Logger

	mu        sync.Mutex
	lastGen   uint64
	acquiring bool

	wg sync.WaitGroup
}

// NewBridge creates a bridge over the store and transport provider.
func NewBridge(provider TransportProvider, st *store.Store, log *slog.Logger) *Bridge {
	if log == nil {
		log = logger.Discard()
	}
	return &Bridge{
		provider: provider,
		store:    st,
		log:      log,
	}
}

// Start subscribes the bridge to store mutations.
func (b *Bridge) Start() {
	b.store.Subscribe(b.onSnapshot)
}

// Wait blocks until all in-flight dispatches finish.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// onSnapshot runs synchronously after every store mutation. Each intent
// generation is claimed under the lock before dispatching, so an intent
// observed by several snapshots still executes exactly once.
func (b *Bridge) onSnapshot(snap store.Snapshot) {
	if !snap.PendingPlay {
		return
	}
	track := snap.Current()
	if track == nil {
		return
	}

	// A pending intent with no ready transport means nothing has acquired
	// one yet. Kick acquisition off; Init flips readiness in the store,
	// which re-enters this listener and dispatches the waiting intent.
	if !snap.Ready {
		b.ensureTransport()
		return
	}

	b.mu.Lock()
	if snap.IntentGeneration <= b.lastGen {
		b.mu.Unlock()
		return
	}
	b.lastGen = snap.IntentGeneration
	b.mu.Unlock()

	b.store.SetPendingPlay(false)

	t := *track
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatch(t)
	}()
}

// ensureTransport starts transport acquisition unless one is already in
// progress. Acquisition failure surfaces like a failed play.
func (b *Bridge) ensureTransport() {
	b.mu.Lock()
	if b.acquiring {
		b.mu.Unlock()
		return
	}
	b.acquiring = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		_, err := b.provider.Acquire(ctx)

		b.mu.Lock()
		b.acquiring = false
		b.mu.Unlock()

		if err != nil {
			b.log.Error("transport acquisition failed", "error", err)
			b.store.SetPendingPlay(false)
			b.store.SetPlaying(false)
			b.store.SetLastError(cadenceerrors.UserMessage(err))
		}
	}()
}

func (b *Bridge) dispatch(track core.Track) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	tr, err := b.provider.Acquire(ctx)
	if err != nil {
		b.log.Error("transport acquisition failed", "error", err)
		b.store.SetPlaying(false)
		b.store.SetLastError(cadenceerrors.UserMessage(err))
		return
	}

	// The transport writes failure state into the store itself; the bridge
	// only logs here.
	if err := tr.Play(ctx, &track); err != nil {
		b.log.Warn("deferred play failed", "track", track.ID, "error", err)
	}
}
