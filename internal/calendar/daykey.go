package calendar

import (
	"strings"
	"time"

	// Target zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

const (
	// DefaultTimezone is the organization zone all booking dates are keyed in.
	DefaultTimezone = "Asia/Dhaka"

	// KeyLayout is the canonical calendar day key format.
	KeyLayout = "2006-01-02"
)

// Layouts carrying an explicit offset. Parsed as instants.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// Layouts without an offset. Parsed as wall clocks in the target zone.
var wallLayouts = []string{
	KeyLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2 Jan, 06",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// LoadLocation resolves a timezone name, falling back to DefaultTimezone when empty.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

// DayKey returns the YYYY-MM-DD date that v falls on in loc.
func DayKey(v Value, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	t, err := v.Instant(loc)
	if err != nil {
		return "", err
	}
	return FormatKey(t, loc)
}

// FormatKey formats t as a calendar day key in loc.
func FormatKey(t time.Time, loc *time.Location) (string, error) {
	local := t.In(loc)
	if y := local.Year(); y < 0 || y > 9999 {
		return "", &InvalidDateError{Input: t.String(), Reason: "year out of range"}
	}
	return local.Format(KeyLayout), nil
}

func parseText(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{Reason: "value is empty"}
	}

	// Drop a trailing zone name such as " (Bangladesh Standard Time)".
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateError{Input: s, Reason: "unrecognized format"}
}
