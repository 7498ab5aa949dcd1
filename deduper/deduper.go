// Package deduper tracks already-seen image URLs so the same physical image
// is never listed twice across a record's image slots or across records.
package deduper

import "context"

type Deduper interface {
	// AddIfNotExists records the key and reports true when it was unseen.
	AddIfNotExists(context.Context, string) bool
}

func New() Deduper {
	return &hashset{
		seen: make(map[uint64]struct{}),
	}
}
