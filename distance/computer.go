// Package distance computes great-circle distances between the current
// position and every record of a collection, preferring a background worker
// with a synchronous batched fallback.
package distance

import (
	"context"

	"github.com/machimap/machimap/venue"
)

// DefaultBatchSize bounds each synchronous computation batch so a large
// collection never occupies the caller for long stretches.
const DefaultBatchSize = 50

// IndexDistance pairs a record index with its computed distance in meters.
type IndexDistance struct {
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
}

// Computer computes distances from pos to each record. Records with
// non-finite coordinates are skipped, not rejected.
type Computer interface {
	Compute(ctx context.Context, records []venue.Record, pos venue.Position) ([]IndexDistance, error)
}

var _ Computer = (*SyncComputer)(nil)

// SyncComputer performs the computation on the calling goroutine in bounded
// batches, checking for cancellation between batches.
type SyncComputer struct {
	BatchSize int
}

func NewSyncComputer() *SyncComputer {
	return &SyncComputer{BatchSize: DefaultBatchSize}
}

func (c *SyncComputer) Compute(ctx context.Context, records []venue.Record, pos venue.Position) ([]IndexDistance, error) {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	ans := make([]IndexDistance, 0, len(records))

	for offset := 0; offset < len(records); offset += size {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := offset + size
		if end > len(records) {
			end = len(records)
		}

		for i := offset; i < end; i++ {
			r := &records[i]
			if !r.HasValidCoords() {
				continue
			}

			ans = append(ans, IndexDistance{
				Index:    r.Index,
				Distance: r.HaversineDistance(pos),
			})
		}
	}

	return ans, nil
}
