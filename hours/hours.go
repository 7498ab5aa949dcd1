// Package hours parses free-text, possibly weekday-qualified operating-hours
// strings and evaluates open/closed status against a fixed civil timezone.
package hours

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/machimap/machimap/venue"
)

// JST is the civil timezone all evaluation happens in, regardless of the
// process's local clock.
var JST = time.FixedZone("JST", 9*60*60)

// Status is the three-way business-hours state of a record.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Range is one daily time range in minutes since midnight, inclusive at both
// ends. End < Start denotes a range spanning midnight (close past 24:00).
type Range struct {
	Start int
	End   int
}

// SpansMidnight reports whether the range closes on the following day.
func (r Range) SpansMidnight() bool { return r.End < r.Start }

// Schedule is the parsed form of an operating-hours string: the weekdays it
// applies to (Sunday = 0) and one or more daily ranges, combined
// disjunctively.
type Schedule struct {
	Days   [7]bool
	Ranges []Range
}

var dayLetters = []rune("日月火水木金土")

var (
	weekdayPrefixRe = regexp.MustCompile(`^\s*((?:毎日|[日月火水木金土](?:\s*[-,]\s*[日月火水木金土])*(?:\s*,\s*[日月火水木金土](?:\s*[-,]\s*[日月火水木金土])*)*))\s+(.+)$`)
	timeRangeRe     = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)
)

// Parse builds a Schedule from a raw operating-hours string. ok is false when
// the text yields no parseable time range. Malformed tokens are skipped, not
// fatal.
func Parse(text string) (Schedule, bool) {
	normalized := unify(venue.Normalize(text))

	var ans Schedule

	timesPart := normalized

	if m := weekdayPrefixRe.FindStringSubmatch(normalized); m != nil {
		ans.Days = parseWeekdays(m[1])
		timesPart = m[2]
	} else {
		ans.Days = everyDay()
	}

	for _, m := range timeRangeRe.FindAllStringSubmatch(timesPart, -1) {
		sh, _ := strconv.Atoi(m[1])
		sm, _ := strconv.Atoi(m[2])
		eh, _ := strconv.Atoi(m[3])
		em, _ := strconv.Atoi(m[4])

		start := sh*60 + sm
		end := eh*60 + em

		// an explicit 24:00 close is midnight of the next day
		if eh == 24 && em == 0 {
			end = 0
		}

		ans.Ranges = append(ans.Ranges, Range{Start: start, End: end})
	}

	return ans, len(ans.Ranges) > 0
}

// OpenAt reports whether the schedule is open at t, evaluated in JST.
func (s Schedule) OpenAt(t time.Time) bool {
	local := t.In(JST)
	cur := local.Hour()*60 + local.Minute()
	today := int(local.Weekday())
	prev := (today + 6) % 7

	for _, r := range s.Ranges {
		if !r.SpansMidnight() {
			if s.Days[today] && cur >= r.Start && cur <= r.End {
				return true
			}

			continue
		}

		// a spanning range is credited to its opening weekday: past the
		// start it belongs to today, before the end to yesterday
		if cur >= r.Start && s.Days[today] {
			return true
		}

		if cur <= r.End && s.Days[prev] {
			return true
		}
	}

	return false
}

// Evaluate determines the status of a record given its operating-hours text
// and its closed-days text. Absent hours text is StatusUnknown; present but
// unparseable text is also StatusUnknown, since no open/closed claim can be
// supported by it.
func Evaluate(hoursText, closedDays string, now time.Time) Status {
	if strings.TrimSpace(hoursText) == "" {
		return StatusUnknown
	}

	local := now.In(JST)
	today := dayLetters[int(local.Weekday())]

	for _, day := range venue.SplitValues(closedDays) {
		if strings.ContainsRune(day, today) {
			return StatusClosed
		}
	}

	sched, ok := Parse(hoursText)
	if !ok {
		return StatusUnknown
	}

	if sched.OpenAt(now) {
		return StatusOpen
	}

	return StatusClosed
}

// unify maps range dashes and list separators to their canonical forms.
func unify(s string) string {
	return strings.NewReplacer("〜", "-", "~", "-", "、", ",").Replace(s)
}

func parseWeekdays(letters string) [7]bool {
	s := strings.NewReplacer(" ", "", "\t", "", "、", ",").Replace(letters)
	if s == "毎日" {
		return everyDay()
	}

	var ans [7]bool

	matched := false

	for _, token := range strings.Split(s, ",") {
		if token == "" {
			continue
		}

		if start, end, ok := strings.Cut(token, "-"); ok {
			si := dayIndex(firstRune(start))
			ei := dayIndex(firstRune(end))

			if si < 0 || ei < 0 {
				continue
			}

			for i := si; ; i = (i + 1) % 7 {
				ans[i] = true
				matched = true

				if i == ei {
					break
				}
			}

			continue
		}

		for _, ch := range token {
			if idx := dayIndex(ch); idx >= 0 {
				ans[idx] = true
				matched = true
			}
		}
	}

	if !matched {
		return everyDay()
	}

	return ans
}

func dayIndex(r rune) int {
	for i, d := range dayLetters {
		if d == r {
			return i
		}
	}

	return -1
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}

	return 0
}

func everyDay() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}
