package pipeline

import (
	"context"

	"github.com/machimap/machimap/deduper"
	"github.com/machimap/machimap/venue"
)

// ImageRef is one entry of the flattened image listing.
type ImageRef struct {
	URL       string `json:"url"`
	SpotIndex int    `json:"spot_index"`
	SpotName  string `json:"spot_name"`
}

// ImageListing flattens all image URLs across the collection. A
// normalized-URL set guarantees the same physical image is listed once, no
// matter how many slots or records reference it.
func ImageListing(ctx context.Context, records []venue.Record) []ImageRef {
	seen := deduper.New()

	var ans []ImageRef

	for i := range records {
		for _, u := range records[i].AllImages() {
			if !seen.AddIfNotExists(ctx, u) {
				continue
			}

			ans = append(ans, ImageRef{
				URL:       u,
				SpotIndex: records[i].Index,
				SpotName:  records[i].Name,
			})
		}
	}

	return ans
}
