// Package geoloc owns the user's current position: acquisition through a
// pluggable source, a short-TTL durable cache, and graceful degradation to
// "position unknown" consumers must already handle.
package geoloc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/machimap/machimap/kvstore"
	"github.com/machimap/machimap/venue"
)

// DefaultTTL is how long a cached position stays usable.
const DefaultTTL = 5 * time.Minute

const cacheKey = "geolocation_cache"

// Source is the permission-gated device primitive producing one position
// reading.
type Source interface {
	Acquire(ctx context.Context) (venue.Position, error)
}

// Session caches and republishes the current position. A failed refresh
// never clears a still-valid cached value.
type Session struct {
	mu     sync.RWMutex
	source Source
	store  *kvstore.Store
	log    *zap.Logger
	ttl    time.Duration
	pos    *venue.Position
}

func NewSession(source Source, store *kvstore.Store, log *zap.Logger) *Session {
	return &Session{
		source: source,
		store:  store,
		log:    log,
		ttl:    DefaultTTL,
	}
}

// Start publishes an unexpired cached position immediately, then refreshes in
// the background.
func (s *Session) Start(ctx context.Context) {
	var cached venue.Position
	if s.store.Get(ctx, cacheKey, s.ttl, &cached) {
		s.mu.Lock()
		s.pos = &cached
		s.mu.Unlock()
	}

	go func() {
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn("geolocation refresh failed", zap.Error(err))
		}
	}()
}

// Current returns the last known position, or nil when none is available.
func (s *Session) Current() *venue.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pos == nil {
		return nil
	}

	pos := *s.pos

	return &pos
}

// Refresh requests a fresh reading. Success replaces both the cache and the
// published value; failure returns an error only when no cached value is
// covering for it.
func (s *Session) Refresh(ctx context.Context) error {
	pos, err := s.source.Acquire(ctx)
	if err != nil {
		if s.Current() != nil {
			s.log.Debug("keeping cached position after failed refresh", zap.Error(err))

			return nil
		}

		return err
	}

	s.mu.Lock()
	s.pos = &pos
	s.mu.Unlock()

	s.store.Set(ctx, cacheKey, pos)

	return nil
}
