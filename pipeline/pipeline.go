// Package pipeline ingests the raw venue dataset: fetch, sanitize, order,
// publish, with a cache-first fast path and background revalidation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/machimap/machimap/kvstore"
	"github.com/machimap/machimap/venue"
)

// DefaultCacheTTL is how long a cached dataset may serve the fast path.
const DefaultCacheTTL = 24 * time.Hour

// DefaultCacheKey is the store key of the main venue collection. A process
// running more than one pipeline over the same store gives each its own key.
const DefaultCacheKey = "venueListCache:v2"

// ErrNoRecords means a fetch succeeded but yielded zero usable rows.
var ErrNoRecords = errors.New("dataset contains no usable records")

// Snapshot is one published collection. Record indices are unique and stable
// within a snapshot; a re-ingestion reassigns them.
type Snapshot struct {
	ID        string
	Records   []venue.Record
	Rejected  int
	FromCache bool
}

// Config wires a Pipeline.
type Config struct {
	DataURL  string
	Client   *http.Client
	Store    *kvstore.Store
	Resolver venue.ImageResolver
	CacheKey string
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Pipeline owns the in-memory ordered collection and coordinates it with the
// persistent cache. One instance per process, owned by the bootstrap.
type Pipeline struct {
	dataURL  string
	client   *http.Client
	store    *kvstore.Store
	resolver venue.ImageResolver
	cacheKey string
	cacheTTL time.Duration
	log      *zap.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	err      error
	subs     []func(Snapshot)
}

func New(cfg Config) *Pipeline {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	key := cfg.CacheKey
	if key == "" {
		key = DefaultCacheKey
	}

	return &Pipeline{
		dataURL:  cfg.DataURL,
		client:   client,
		store:    cfg.Store,
		resolver: cfg.Resolver,
		cacheKey: key,
		cacheTTL: ttl,
		log:      cfg.Logger,
	}
}

// Subscribe registers fn to be called on every publish. Subscribers are
// invoked outside the pipeline's lock.
func (p *Pipeline) Subscribe(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subs = append(p.subs, fn)
}

// Snapshot returns the current published collection and the advisory error
// state.
func (p *Pipeline) Snapshot() (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.snapshot, p.err
}

// Load serves the cached dataset immediately when one is fresh enough, then
// revalidates against the network in the background. Without a cache the
// fetch is synchronous and its failure is the caller's error.
func (p *Pipeline) Load(ctx context.Context) error {
	var cached []venue.Record

	if p.store.Get(ctx, p.cacheKey, p.cacheTTL, &cached) && len(cached) > 0 {
		p.publish(Snapshot{
			ID:        uuid.NewString(),
			Records:   revalidate(cached),
			FromCache: true,
		}, nil)

		go func() {
			if err := p.refresh(ctx); err != nil {
				p.log.Warn("background refresh failed, keeping published data", zap.Error(err))
				p.setAdvisoryError(err)
			}
		}()

		return nil
	}

	if err := p.refresh(ctx); err != nil {
		p.publish(Snapshot{}, err)

		return err
	}

	return nil
}

// refresh fetches, parses and sanitizes the dataset, publishing only when
// the result differs from what is already published.
func (p *Pipeline) refresh(ctx context.Context) error {
	records, rejected, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	p.mu.RLock()
	unchanged := reflect.DeepEqual(p.snapshot.Records, records)
	p.mu.RUnlock()

	if unchanged {
		p.log.Debug("dataset unchanged, skipping publish")

		return nil
	}

	p.publish(Snapshot{
		ID:       uuid.NewString(),
		Records:  records,
		Rejected: rejected,
	}, nil)

	p.store.Set(ctx, p.cacheKey, records)

	return nil
}

func (p *Pipeline) fetch(ctx context.Context) ([]venue.Record, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.dataURL, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("dataset fetch: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("dataset fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("dataset read: %w", err)
	}

	rows, err := parseTable(string(body))
	if err != nil {
		return nil, 0, fmt.Errorf("dataset parse: %w", err)
	}

	records := make([]venue.Record, 0, len(rows))
	rejected := 0

	for _, row := range rows {
		rec, err := venue.Sanitize(row, len(records), p.resolver.Resolve)
		if err != nil {
			rejected++

			p.log.Debug("row rejected", zap.Error(err))

			continue
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, rejected, fmt.Errorf("%w (%d rows rejected)", ErrNoRecords, rejected)
	}

	if rejected > 0 {
		p.log.Info("rows rejected during ingestion", zap.Int("rejected", rejected), zap.Int("accepted", len(records)))
	}

	sortByTimestamp(records)

	return records, rejected, nil
}

func (p *Pipeline) publish(snap Snapshot, err error) {
	p.mu.Lock()
	if err == nil || len(p.snapshot.Records) == 0 {
		p.snapshot = snap
	}
	p.err = err
	subs := make([]func(Snapshot), len(p.subs))
	copy(subs, p.subs)
	snapshot := p.snapshot
	p.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (p *Pipeline) setAdvisoryError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
}

// revalidate re-checks cached records against the sanitizer's invariants and
// reassigns indices, so a cache written by an older build cannot publish
// unusable entries.
func revalidate(records []venue.Record) []venue.Record {
	ans := make([]venue.Record, 0, len(records))

	for _, r := range records {
		if venue.Normalize(r.Name) == "" || !r.HasValidCoords() {
			continue
		}

		r.Index = len(ans)
		ans = append(ans, r)
	}

	return ans
}

// sortByTimestamp orders the collection most-recently-updated first; this is
// the default order before any user-driven sort.
func sortByTimestamp(records []venue.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return parseTimestamp(records[i].Timestamp).After(parseTimestamp(records[j].Timestamp))
	})
}

var timestampLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}

	return time.Time{}
}
