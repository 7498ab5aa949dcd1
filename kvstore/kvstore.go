// Package kvstore is a durable key-value cache with per-entry timestamps and
// configurable expiry. The store degrades rather than fails: any backend
// error falls through to an in-memory fallback or a nil result, so callers
// never wrap cache access in error handling.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by backends when a key has no entry.
var ErrNotFound = errors.New("not found")

// Backend is one storage tier: a string-keyed store of opaque payloads with
// their write time.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Set(ctx context.Context, key string, value []byte, ts time.Time) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store serves reads and writes through a primary backend, transparently
// falling back to an in-memory backend when the primary fails.
type Store struct {
	primary  Backend
	fallback Backend
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Store over primary. A nil primary uses only the in-memory
// fallback.
func New(primary Backend, log *zap.Logger) *Store {
	return &Store{
		primary:  primary,
		fallback: NewMemory(),
		log:      log,
		now:      time.Now,
	}
}

// Get loads the value stored under key into dst and reports whether a usable
// entry was found. A maxAge of zero never expires. A stale entry counts as a
// miss and is opportunistically deleted; deletion failures are swallowed.
func (s *Store) Get(ctx context.Context, key string, maxAge time.Duration, dst any) bool {
	raw, ts, err := s.get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}

		return false
	}

	if maxAge > 0 && s.now().Sub(ts) > maxAge {
		s.delete(ctx, key)

		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("cache entry corrupt, discarding", zap.String("key", key), zap.Error(err))
		s.delete(ctx, key)

		return false
	}

	return true
}

// Set stores value under key with the current timestamp, replacing any
// previous entry wholesale. Failures are logged, never returned.
func (s *Store) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))

		return
	}

	ts := s.now()

	if s.primary != nil {
		err := s.primary.Set(ctx, key, raw, ts)
		if err == nil {
			return
		}

		s.log.Warn("primary cache write failed, using fallback", zap.String("key", key), zap.Error(err))
	}

	if err := s.fallback.Set(ctx, key, raw, ts); err != nil {
		s.log.Warn("fallback cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases both backends.
func (s *Store) Close() error {
	var err error

	if s.primary != nil {
		err = s.primary.Close()
	}

	if e := s.fallback.Close(); err == nil {
		err = e
	}

	return err
}

func (s *Store) get(ctx context.Context, key string) ([]byte, time.Time, error) {
	if s.primary != nil {
		raw, ts, err := s.primary.Get(ctx, key)
		if err == nil {
			return raw, ts, nil
		}

		if errors.Is(err, ErrNotFound) {
			return nil, time.Time{}, err
		}

		s.log.Debug("primary cache unavailable, trying fallback", zap.String("key", key), zap.Error(err))
	}

	return s.fallback.Get(ctx, key)
}

func (s *Store) delete(ctx context.Context, key string) {
	if s.primary != nil {
		_ = s.primary.Delete(ctx, key)
	}

	_ = s.fallback.Delete(ctx, key)
}
