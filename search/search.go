// Package search filters, ranks and paginates a venue collection. Ranking is
// deterministic: business-hours status, then distance, then locale-aware
// name order.
package search

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/machimap/machimap/hours"
	"github.com/machimap/machimap/venue"
)

// Query combines the user-driven predicates. Zero values disable a
// predicate.
type Query struct {
	Text     string
	Category string
	Area     string
	Tag      string
	OpenNow  bool
	Parking  bool
}

// Engine applies queries against a collection. Safe for concurrent use once
// built.
type Engine struct {
	collator *collate.Collator
	now      func() time.Time
}

func NewEngine() *Engine {
	return NewEngineAt(time.Now)
}

// NewEngineAt builds an engine with a fixed clock for the open-now
// evaluation.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{
		collator: collate.New(language.Japanese, collate.Loose, collate.Numeric),
		now:      now,
	}
}

// Apply filters the collection by q and returns a newly ordered result.
// Records with unknown hours are excluded by the open-now predicate; a nil
// distance sorts after any numeric distance.
func (e *Engine) Apply(records []venue.Record, q Query) []venue.Record {
	now := e.now()

	ans := make([]venue.Record, 0, len(records))
	statuses := make(map[int]hours.Status, len(records))

	for i := range records {
		r := &records[i]

		status := hours.Evaluate(r.Hours, r.ClosedDays, now)
		if !e.matches(r, q, status) {
			continue
		}

		statuses[r.Index] = status
		ans = append(ans, *r)
	}

	sort.SliceStable(ans, func(i, j int) bool {
		a, b := &ans[i], &ans[j]

		if sa, sb := statuses[a.Index], statuses[b.Index]; sa != sb {
			return sa < sb
		}

		if c := compareDistance(a.Distance, b.Distance); c != 0 {
			return c < 0
		}

		return e.collator.CompareString(a.Name, b.Name) < 0
	})

	return ans
}

func (e *Engine) matches(r *venue.Record, q Query, status hours.Status) bool {
	if text := strings.TrimSpace(q.Text); text != "" && !matchesText(r, text) {
		return false
	}

	if q.Category != "" && !containsValue(venue.SplitValues(r.Category), q.Category) {
		return false
	}

	if q.Tag != "" && !containsValue(venue.SplitValues(r.Tags), q.Tag) {
		return false
	}

	if q.Area != "" && r.Area != q.Area {
		return false
	}

	if q.OpenNow && status != hours.StatusOpen {
		return false
	}

	if q.Parking && !HasParking(r.Parking) {
		return false
	}

	return true
}

// matchesText is a case-insensitive substring match against every string
// field of the record, not a fixed field list.
func matchesText(r *venue.Record, text string) bool {
	needle := strings.ToLower(text)

	for _, v := range fieldValues(r) {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}

	return false
}

func fieldValues(r *venue.Record) []string {
	ans := []string{
		r.Name, r.Category, r.Tags, r.Hours, r.ClosedDays, r.Area,
		r.Address, r.Phone, r.Website, r.Instagram, r.Twitter, r.Facebook,
		r.Reservation, r.Parking, r.Intro, r.Timestamp,
	}

	ans = append(ans, r.AllImages()...)

	for _, v := range r.Extra {
		ans = append(ans, v)
	}

	return ans
}

var parkingCountRe = regexp.MustCompile(`\d+`)

// HasParking reports whether the free-text parking field advertises at least
// one space. An embedded count takes precedence over textual affirmation.
func HasParking(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if m := parkingCountRe.FindString(venue.Normalize(text)); m != "" {
		n, err := strconv.Atoi(m)

		return err == nil && n >= 1
	}

	return strings.Contains(text, "有") || strings.Contains(text, "あり")
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}

	return false
}

// compareDistance orders numeric distances ascending, with missing or NaN
// distances forming a stable tail.
func compareDistance(a, b *float64) int {
	av, aok := distanceValue(a)
	bv, bok := distanceValue(b)

	switch {
	case aok && bok:
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	default:
		return 0
	}
}

func distanceValue(d *float64) (float64, bool) {
	if d == nil || math.IsNaN(*d) {
		return 0, false
	}

	return *d, true
}
