package deduper

import (
	"context"
	"hash/fnv"
	"net/url"
	"strings"
	"sync"
)

var _ Deduper = (*hashset)(nil)

type hashset struct {
	mux  sync.Mutex
	seen map[uint64]struct{}
}

func (d *hashset) AddIfNotExists(_ context.Context, key string) bool {
	h := d.hash(normalizeURL(key))

	d.mux.Lock()
	defer d.mux.Unlock()

	if _, ok := d.seen[h]; ok {
		return false
	}

	d.seen[h] = struct{}{}

	return true
}

func (d *hashset) hash(key string) uint64 {
	h := fnv.New64()
	h.Write([]byte(key))

	return h.Sum64()
}

// normalizeURL canonicalizes scheme and host casing and trailing slashes so
// cosmetic variants of the same URL collapse to one identity. Unparseable
// input falls back to the trimmed raw string.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}
