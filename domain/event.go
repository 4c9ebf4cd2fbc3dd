package domain

import "time"

// Event is a single discoverable event in the read model.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Attendees   int    `json:"attendees"`
	Image       string `json:"image,omitempty"`
	Featured    bool   `json:"featured,omitempty"`

	Organizer *Organizer `json:"organizer,omitempty"`
}

// Organizer identifies who runs an event.
type Organizer struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Categories is the fixed category set events may belong to.
var Categories = []string{"sports", "music", "tech", "business", "art", "social"}

// ValidCategory reports whether c is one of the supported categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// eventDateLayouts are the accepted encodings for Event.Date, tried in order.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
}

// ParseEventDate parses an event date in any supported layout. Dates are
// interpreted in the local time zone when the layout carries no offset.
func ParseEventDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range eventDateLayouts {
		if layout == time.RFC3339 {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, true
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
