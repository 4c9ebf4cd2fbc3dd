package domain

import (
	"sort"
	"strings"
	"time"
)

// DateFilter buckets events relative to the moment the query runs.
type DateFilter string

const (
	DateAll       DateFilter = "all"
	DateToday     DateFilter = "today"
	DateTomorrow  DateFilter = "tomorrow"
	DateThisWeek  DateFilter = "thisWeek"
	DateThisMonth DateFilter = "thisMonth"
)

// AttendeeFilter buckets events by expected crowd size.
type AttendeeFilter string

const (
	AttendeesAll    AttendeeFilter = "all"
	AttendeesSmall  AttendeeFilter = "small"  // < 50
	AttendeesMedium AttendeeFilter = "medium" // 50..200 inclusive
	AttendeesLarge  AttendeeFilter = "large"  // > 200
)

// SortKey selects the result ordering.
type SortKey string

const (
	SortByDate      SortKey = "date"
	SortByAttendees SortKey = "attendees"
	// SortByPopularity currently orders by attendee count, same as
	// SortByAttendees. Kept as a distinct key so a trending metric can
	// replace the comparator without changing the API.
	SortByPopularity SortKey = "popularity"
)

// FilterConfig is the full filter/sort selection for one query. A fresh value
// is produced per interaction; the zero value is not meaningful, use
// DefaultFilters.
type FilterConfig struct {
	Date      DateFilter     `json:"date"`
	Location  string         `json:"location"`
	Attendees AttendeeFilter `json:"attendees"`
	SortBy    SortKey        `json:"sortBy"`
}

// DefaultFilters returns the filter state with everything open and date sort.
func DefaultFilters() FilterConfig {
	return FilterConfig{
		Date:      DateAll,
		Location:  LocationAll,
		Attendees: AttendeesAll,
		SortBy:    SortByDate,
	}
}

// LocationAll disables the location filter.
const LocationAll = "all"

// locationSubstrings maps supported location keys to the lowercase substring
// an event location must contain. Keys not present here match nothing.
var locationSubstrings = map[string]string{
	"istanbul": "istanbul",
	"ankara":   "ankara",
	"izmir":    "izmir",
	"antalya":  "antalya",
	"bursa":    "bursa",
}

// Query computes the visible, ordered event list. It is a pure function over
// its arguments; now anchors the date buckets and is evaluated per call. The
// input slice is never mutated.
func Query(events []Event, searchQuery, category string, filters FilterConfig, now time.Time) []Event {
	needle := strings.ToLower(strings.TrimSpace(searchQuery))

	matched := make([]Event, 0, len(events))
	for _, ev := range events {
		if !matchesSearch(ev, needle) {
			continue
		}
		if category != "" && ev.Category != category {
			continue
		}
		if !matchesDate(ev, filters.Date, now) {
			continue
		}
		if !matchesLocation(ev, filters.Location) {
			continue
		}
		if !matchesAttendees(ev, filters.Attendees) {
			continue
		}
		matched = append(matched, ev)
	}

	sortEvents(matched, filters.SortBy)
	return matched
}

func matchesSearch(ev Event, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ev.Title), needle) ||
		strings.Contains(strings.ToLower(ev.Location), needle)
}

func matchesDate(ev Event, bucket DateFilter, now time.Time) bool {
	if bucket == DateAll || bucket == "" {
		return true
	}
	ts, ok := ParseEventDate(ev.Date)
	if !ok {
		// Malformed dates never match a specific bucket.
		return false
	}
	ts = ts.In(now.Location())

	switch bucket {
	case DateToday:
		return sameDay(ts, now)
	case DateTomorrow:
		return sameDay(ts, now.AddDate(0, 0, 1))
	case DateThisWeek:
		start := startOfDay(now)
		end := startOfDay(now).AddDate(0, 0, 8) // inclusive of today+7
		return !ts.Before(start) && ts.Before(end)
	case DateThisMonth:
		return ts.Year() == now.Year() && ts.Month() == now.Month()
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func matchesLocation(ev Event, key string) bool {
	if key == LocationAll || key == "" {
		return true
	}
	substr, ok := locationSubstrings[key]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(ev.Location), substr)
}

func matchesAttendees(ev Event, bucket AttendeeFilter) bool {
	switch bucket {
	case AttendeesAll, "":
		return true
	case AttendeesSmall:
		return ev.Attendees < 50
	case AttendeesMedium:
		return ev.Attendees >= 50 && ev.Attendees <= 200
	case AttendeesLarge:
		return ev.Attendees > 200
	}
	return false
}

// sortEvents orders in place. The sort is stable so ties keep their original
// relative order.
func sortEvents(events []Event, key SortKey) {
	switch key {
	case SortByAttendees, SortByPopularity:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Attendees > events[j].Attendees
		})
	default: // SortByDate
		sort.SliceStable(events, func(i, j int) bool {
			ti, iOK := ParseEventDate(events[i].Date)
			tj, jOK := ParseEventDate(events[j].Date)
			if iOK != jOK {
				// Parsable dates sort ahead of unparsable ones.
				return iOK
			}
			if !iOK {
				return false
			}
			return ti.Before(tj)
		})
	}
}
