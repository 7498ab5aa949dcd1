package venue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/machimap/machimap/venue"
)

func validRow() map[string]string {
	return map[string]string{
		venue.ColName:      "喫茶マチ",
		venue.ColLatitude:  "35.6812",
		venue.ColLongitude: "139.7671",
		venue.ColCategory:  "カフェ",
		venue.ColArea:      "中央",
	}
}

func TestSanitize(t *testing.T) {
	rec, err := venue.Sanitize(validRow(), 3, nil)
	require.NoError(t, err)

	require.Equal(t, 3, rec.Index)
	require.Equal(t, "喫茶マチ", rec.Name)
	require.InDelta(t, 35.6812, rec.Latitude, 1e-9)
	require.InDelta(t, 139.7671, rec.Longitude, 1e-9)
	require.Equal(t, "カフェ", rec.Category)
}

func TestSanitize_FullwidthCoordinates(t *testing.T) {
	row := validRow()
	row[venue.ColLatitude] = "３５．６８１２"
	row[venue.ColLongitude] = "１３９．７６７１"

	rec, err := venue.Sanitize(row, 0, nil)
	require.NoError(t, err)
	require.InDelta(t, 35.6812, rec.Latitude, 1e-9)
	require.InDelta(t, 139.7671, rec.Longitude, 1e-9)
}

func TestSanitize_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing name", func(m map[string]string) { delete(m, venue.ColName) }},
		{"whitespace name", func(m map[string]string) { m[venue.ColName] = "   " }},
		{"missing latitude", func(m map[string]string) { delete(m, venue.ColLatitude) }},
		{"non numeric latitude", func(m map[string]string) { m[venue.ColLatitude] = "north" }},
		{"non numeric longitude", func(m map[string]string) { m[venue.ColLongitude] = "東経" }},
		{"infinite latitude", func(m map[string]string) { m[venue.ColLatitude] = "Inf" }},
		{"nan longitude", func(m map[string]string) { m[venue.ColLongitude] = "NaN" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			tc.mutate(row)

			_, err := venue.Sanitize(row, 0, nil)
			require.ErrorIs(t, err, venue.ErrRejected)
		})
	}
}

func TestSanitize_ImageFields(t *testing.T) {
	row := validRow()
	row["画像"] = " https://drive.google.com/file/d/abc123/view "
	row["画像3"] = "/local/photo.jpg"

	resolver := venue.ImageResolver{ProxyBase: "/images/proxy"}

	rec, err := venue.Sanitize(row, 0, resolver.Resolve)
	require.NoError(t, err)

	require.Equal(t, "/images/proxy?id=abc123", rec.Images[0])
	require.Equal(t, "", rec.Images[1], "empty slots stay empty strings")
	require.Equal(t, "/local/photo.jpg", rec.Images[2])
}

func TestSanitize_ExtraColumns(t *testing.T) {
	row := validRow()
	row["未知の列"] = "ｖａｌｕｅ"

	rec, err := venue.Sanitize(row, 0, nil)
	require.NoError(t, err)
	require.Equal(t, "value", rec.Extra["未知の列"])
}

func TestRecord_WithDistanceIsCopyOnWrite(t *testing.T) {
	rec, err := venue.Sanitize(validRow(), 0, nil)
	require.NoError(t, err)

	withD := rec.WithDistance(1200)
	require.Nil(t, rec.Distance)
	require.NotNil(t, withD.Distance)
	require.InDelta(t, 1200, *withD.Distance, 1e-9)
}
