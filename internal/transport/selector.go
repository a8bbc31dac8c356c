package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tessro/cadence/internal/logger"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/store"
)

// TierSource reports the session's subscription tier.
type TierSource interface {
	SubscriptionTier(ctx context.Context) (session.Tier, error)
}

// Selector picks the transport for the session: remote device playback
// for full-tier sessions, the preview fallback for everything else.
// Concurrent acquisitions collapse into a single tier check and Init.
type Selector struct {
	tiers    TierSource
	store    *store.Store
	remote   Transport
	fallback Transport
	log      *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	active Transport
}

// NewSelector creates a transport selector over the two transports.
func NewSelector(tiers TierSource, st *store.Store, remote, fallback Transport, log *slog.Logger) *Selector {
	if log == nil {
		log = logger.Discard()
	}
	return &Selector{
		tiers:    tiers,
		store:    st,
		remote:   remote,
		fallback: fallback,
		log:      log,
	}
}

// Acquire returns the initialized transport for the session, selecting it
// on first use. When the tier cannot be determined the session degrades to
// the preview fallback rather than failing outright.
func (s *Selector) Acquire(ctx context.Context) (Transport, error) {
	s.mu.Lock()
	if s.active != nil {
		active := s.active
		s.mu.Unlock()
		return active, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("acquire", func() (interface{}, error) {
		return s.acquire(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Transport), nil
}

func (s *Selector) acquire(ctx context.Context) (Transport, error) {
	s.mu.Lock()
	if s.active != nil {
		active := s.active
		s.mu.Unlock()
		return active, nil
	}
	s.mu.Unlock()

	tier, err := s.tiers.SubscriptionTier(ctx)
	if err != nil {
		s.log.Warn("tier check failed, using preview fallback", "error", err)
		tier = session.TierLimited
	}

	chosen := s.fallback
	if tier == session.TierFull {
		chosen = s.remote
	}

	if err := chosen.Init(ctx); err != nil {
		return nil, fmt.Errorf("transport init: %w", err)
	}

	s.store.SetPremiumTier(tier == session.TierFull)
	s.log.Info("transport selected", "tier", string(tier))

	s.mu.Lock()
	s.active = chosen
	s.mu.Unlock()
	return chosen, nil
}

// Active returns the selected transport, or nil before the first Acquire.
func (s *Selector) Active() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close releases the active transport and forgets the selection.
func (s *Selector) Close() error {
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()

	if active == nil {
		return nil
	}
	return active.Close()
}
