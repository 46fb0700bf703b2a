package board

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/models"
)

// Order controls how matching records are sorted by submission time.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// ParseOrder accepts "asc" or "desc"; empty means ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return OrderAscending, nil
	case "desc", "descending":
		return OrderDescending, nil
	default:
		return OrderAscending, fmt.Errorf("unknown order %q", s)
	}
}

func (o Order) String() string {
	if o == OrderDescending {
		return "desc"
	}
	return "asc"
}

// Match reports whether rec is booked on the day key in loc. Records without
// a booking date, or with one that cannot be keyed, never match.
func Match(rec models.Record, key string, loc *time.Location) bool {
	if !rec.BookingDate.Present() {
		return false
	}
	got, err := calendar.DayKey(rec.BookingDate, loc)
	return err == nil && got == key
}

// Filter returns the records booked on sel in loc, sorted by submission time.
// Records without a usable timestamp follow the stamped ones; ties keep
// input order. The input slice is not modified.
func Filter(records []models.Record, sel calendar.Selection, loc *time.Location, order Order) []models.Record {
	key := sel.Key()

	type candidate struct {
		rec     models.Record
		at      time.Time
		stamped bool
	}

	matched := make([]candidate, 0, len(records))
	for _, rec := range records {
		if !Match(rec, key, loc) {
			continue
		}
		c := candidate{rec: rec}
		if rec.SubmittedAt.Present() {
			if at, err := rec.SubmittedAt.Instant(loc); err == nil {
				c.at, c.stamped = at, true
			}
		}
		matched = append(matched, c)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.stamped != b.stamped {
			return a.stamped
		}
		if !a.stamped {
			return false
		}
		if order == OrderDescending {
			return a.at.After(b.at)
		}
		return a.at.Before(b.at)
	})

	out := make([]models.Record, len(matched))
	for i, c := range matched {
		out[i] = c.rec
	}
	return out
}

// FilterText parses text as a selection and filters records by it.
func FilterText(records []models.Record, text string, loc *time.Location, order Order) ([]models.Record, error) {
	sel, err := calendar.ParseSelection(text)
	if err != nil {
		return nil, err
	}
	return Filter(records, sel, loc, order), nil
}
