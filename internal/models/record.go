package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mealboard/internal/calendar"
)

// Field names used by the export adapter for the booked day.
const (
	DateFieldBooking = "bookingDate"
	DateFieldMeal    = "mealDate"
)

// ErrNotSequence is returned when a payload's top-level value is not an array.
var ErrNotSequence = errors.New("payload is not a sequence of records")

// Record is one booking row.
type Record struct {
	SubmittedAt calendar.Value `json:"timestamp"`
	Name        string         `json:"name"`
	BookingDate calendar.Value `json:"bookingDate"`
}

// ValidDateField reports whether name is a supported booking date field.
func ValidDateField(name string) bool {
	return name == DateFieldBooking || name == DateFieldMeal
}

// EncodeRecords serializes records as a JSON array, naming the booking date
// field dateField.
func EncodeRecords(records []Record, dateField string) ([]byte, error) {
	if dateField == "" {
		dateField = DateFieldBooking
	}

	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]any{
			"timestamp": r.SubmittedAt,
			"name":      r.Name,
			dateField:   r.BookingDate,
		})
	}
	return json.Marshal(rows)
}

// DecodeRecords parses a JSON array of records. Elements that are not objects
// or have no name are skipped and counted; only a non-array payload fails.
func DecodeRecords(data []byte, dateField string) ([]Record, int, error) {
	if dateField == "" {
		dateField = DateFieldBooking
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, 0, ErrNotSequence
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNotSequence, err)
	}

	records := make([]Record, 0, len(elements))
	skipped := 0
	for _, raw := range elements {
		rec, ok := decodeRecord(raw, dateField)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func decodeRecord(raw json.RawMessage, dateField string) (Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Record{}, false
	}

	var name string
	if err := json.Unmarshal(fields["name"], &name); err != nil {
		return Record{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, false
	}

	rec := Record{Name: name}
	if v, ok := fields["timestamp"]; ok {
		_ = rec.SubmittedAt.UnmarshalJSON(v)
	}
	if v, ok := fields[dateField]; ok {
		_ = rec.BookingDate.UnmarshalJSON(v)
	}
	return rec, true
}
