package export

import (
	"time"

	"github.com/xuri/excelize/v2"
)

// SerialToTime converts a spreadsheet serial date into the wall clock it
// denotes in loc.
func SerialToTime(serial float64, loc *time.Location) (time.Time, error) {
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}

// IsDateColumn reports whether idx is one of cols.
func IsDateColumn(cols []int, idx int) bool {
	for _, c := range cols {
		if c == idx {
			return true
		}
	}
	return false
}
