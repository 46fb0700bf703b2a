package calendar

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindTime
	kindText
	kindEpoch
)

// Value is a date field as delivered by the export adapter. It may hold a
// native instant, a text encoding, a numeric epoch in milliseconds, or nothing.
type Value struct {
	kind  valueKind
	t     time.Time
	text  string
	epoch float64
}

// Absent returns an empty Value.
func Absent() Value { return Value{} }

// FromTime wraps an instant. The zero time is treated as absent.
func FromTime(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: kindTime, t: t}
}

// FromText wraps a textual date. Blank text is treated as absent.
func FromText(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	return Value{kind: kindText, text: s}
}

// FromEpochMillis wraps a Unix timestamp in milliseconds.
func FromEpochMillis(ms float64) Value {
	return Value{kind: kindEpoch, epoch: ms}
}

// Present reports whether the value carries anything at all.
func (v Value) Present() bool {
	return v.kind != kindAbsent
}

func (v Value) String() string {
	switch v.kind {
	case kindTime:
		return v.t.Format(time.RFC3339Nano)
	case kindText:
		return v.text
	case kindEpoch:
		return strconv.FormatFloat(v.epoch, 'f', -1, 64)
	default:
		return ""
	}
}

// Instant resolves the value to a point in time. Text without a zone offset
// is read as a wall clock in loc.
func (v Value) Instant(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch v.kind {
	case kindTime:
		return v.t, nil
	case kindEpoch:
		if math.IsNaN(v.epoch) || math.IsInf(v.epoch, 0) {
			return time.Time{}, &InvalidDateError{Input: v.String(), Reason: "epoch is not finite"}
		}
		return time.UnixMilli(int64(v.epoch)), nil
	case kindText:
		return parseText(v.text, loc)
	default:
		return time.Time{}, &InvalidDateError{Reason: "value is absent"}
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case kindText:
		return json.Marshal(v.text)
	case kindEpoch:
		if math.IsNaN(v.epoch) || math.IsInf(v.epoch, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.epoch, 'f', -1, 64)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, strings and numbers. Any other JSON kind is kept
// as raw text so that keying fails for that record alone.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FromText(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*v = Value{kind: kindText, text: string(data)}
			return nil
		}
		*v = FromEpochMillis(ms)
	default:
		*v = Value{kind: kindText, text: string(data)}
	}
	return nil
}
