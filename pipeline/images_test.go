package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/machimap/machimap/pipeline"
	"github.com/machimap/machimap/venue"
)

func TestImageListing(t *testing.T) {
	records := []venue.Record{
		{
			Index: 0, Name: "A",
			Images: [5]string{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		},
		{
			Index: 1, Name: "B",
			// the first slot repeats an image already listed under A
			Images: [5]string{"https://example.com/a.jpg", "https://example.com/c.jpg"},
		},
	}

	got := pipeline.ImageListing(context.Background(), records)
	require.Len(t, got, 3)

	require.Equal(t, "https://example.com/a.jpg", got[0].URL)
	require.Equal(t, 0, got[0].SpotIndex)
	require.Equal(t, "A", got[0].SpotName)
	require.Equal(t, "https://example.com/c.jpg", got[2].URL)
	require.Equal(t, 1, got[2].SpotIndex)
}

func TestImageListing_Empty(t *testing.T) {
	require.Empty(t, pipeline.ImageListing(context.Background(), nil))
}
