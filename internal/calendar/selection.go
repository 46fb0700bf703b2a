package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var selectionPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Selection is a plain calendar date picked by a viewer. It has no time of
// day and no zone, and is never converted through one.
type Selection struct {
	Year  int
	Month int
	Day   int
}

// ParseSelection reads a YYYY-MM-DD string. Month must be 01-12 and day
// 01-31; day-of-month overflow such as 02-31 is accepted and matches nothing.
func ParseSelection(text string) (Selection, error) {
	trimmed := strings.TrimSpace(text)
	m := selectionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Selection{}, &InvalidSelectionError{Input: text, Reason: "expected YYYY-MM-DD"}
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	if month < 1 || month > 12 {
		return Selection{}, &InvalidSelectionError{Input: text, Reason: "month out of range"}
	}
	if day < 1 || day > 31 {
		return Selection{}, &InvalidSelectionError{Input: text, Reason: "day out of range"}
	}

	return Selection{Year: year, Month: month, Day: day}, nil
}

// SelectionFromTime takes the wall-clock date of t in its own location.
func SelectionFromTime(t time.Time) Selection {
	y, m, d := t.Date()
	return Selection{Year: y, Month: int(m), Day: d}
}

// Today returns the current date in loc.
func Today(now time.Time, loc *time.Location) Selection {
	if loc == nil {
		loc = time.Local
	}
	return SelectionFromTime(now.In(loc))
}

// Key returns the canonical day key of the selection itself.
func (s Selection) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, s.Month, s.Day)
}

func (s Selection) String() string {
	return s.Key()
}
