package venue

import (
	"math"
	"strings"
)

// NumImages is the number of image slots a record carries.
const NumImages = 5

// Position is the user's location as a [longitude, latitude] pair in degrees.
type Position [2]float64

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[1] }

// Record is one sanitized point of interest. Index identifies it within a
// single ingested collection; it is reassigned on every re-ingestion.
// Records are immutable once published: the only derived attribute, the
// distance to the current position, is attached on a copy (WithDistance).
type Record struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Category    string            `json:"category"`
	Tags        string            `json:"tags"`
	Hours       string            `json:"hours"`
	ClosedDays  string            `json:"closed_days"`
	Area        string            `json:"area"`
	Address     string            `json:"address"`
	Phone       string            `json:"phone"`
	Website     string            `json:"website"`
	Instagram   string            `json:"instagram"`
	Twitter     string            `json:"twitter"`
	Facebook    string            `json:"facebook"`
	Reservation string            `json:"reservation"`
	Parking     string            `json:"parking"`
	Intro       string            `json:"intro"`
	Timestamp   string            `json:"timestamp"`
	Images      [NumImages]string `json:"images"`
	Extra       map[string]string `json:"extra,omitempty"`

	// Distance in meters from the current position. Nil when the position
	// is unknown or the distance has not been computed.
	Distance *float64 `json:"distance,omitempty"`
}

// HasValidCoords reports whether both coordinates are finite.
func (r *Record) HasValidCoords() bool {
	return isFinite(r.Latitude) && isFinite(r.Longitude)
}

// WithDistance returns a copy of the record with the distance attached. The
// receiver is left untouched.
func (r Record) WithDistance(meters float64) Record {
	r.Distance = &meters

	return r
}

// HaversineDistance returns the great-circle distance in meters between the
// record's coordinates and pos.
func (r *Record) HaversineDistance(pos Position) float64 {
	const earthRadius = 6371e3 // meters

	clat := pos.Lat() * math.Pi / 180
	clon := pos.Lng() * math.Pi / 180

	rlat := r.Latitude * math.Pi / 180
	rlon := r.Longitude * math.Pi / 180

	dlat := rlat - clat
	dlon := rlon - clon

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(clat)*math.Cos(rlat)*
			math.Sin(dlon/2)*math.Sin(dlon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// SplitValues decodes one delimited multi-value field (categories, tags,
// closed days). Delimiters are comma, fullwidth comma and runs of whitespace.
func SplitValues(s string) []string {
	if s == "" {
		return nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、' || r == '，' || r == ' ' || r == '\t' || r == '　'
	})

	ans := make([]string, 0, len(fields))

	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			ans = append(ans, f)
		}
	}

	return ans
}

// AllImages returns the non-empty image URLs in slot order.
func (r *Record) AllImages() []string {
	var ans []string

	for i := range r.Images {
		if r.Images[i] != "" {
			ans = append(ans, r.Images[i])
		}
	}

	return ans
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
