package models

import (
	"testing"

	"mealboard/internal/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords(t *testing.T) {
	raw := `[
		{"timestamp":"2025-10-12T08:00:00Z","name":"A","bookingDate":"2025-10-13T19:00:00Z"},
		{"timestamp":null,"name":"  B ","bookingDate":null},
		{"timestamp":"x","name":"","bookingDate":"2025-10-14"},
		{"name":42},
		"not an object",
		{"name":"C","mealDate":"2025-10-14"}
	]`

	records, skipped, err := DecodeRecords([]byte(raw), DateFieldBooking)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, records, 3)

	assert.Equal(t, "A", records[0].Name)
	assert.True(t, records[0].BookingDate.Present())
	assert.Equal(t, "B", records[1].Name)
	assert.False(t, records[1].BookingDate.Present())
	assert.False(t, records[1].SubmittedAt.Present())
	// mealDate is ignored when the configured field is bookingDate.
	assert.Equal(t, "C", records[2].Name)
	assert.False(t, records[2].BookingDate.Present())
}

func TestDecodeRecordsMealDate(t *testing.T) {
	raw := `[{"name":"C","mealDate":"2025-10-14"}]`

	records, skipped, err := DecodeRecords([]byte(raw), DateFieldMeal)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-10-14", records[0].BookingDate.String())
}

func TestDecodeRecordsNotSequence(t *testing.T) {
	for _, raw := range []string{``, `{}`, `{"error":"boom"}`, `"text"`, `[1,2`, `null`} {
		_, _, err := DecodeRecords([]byte(raw), DateFieldBooking)
		assert.ErrorIs(t, err, ErrNotSequence, raw)
	}

	records, _, err := DecodeRecords([]byte(` [] `), DateFieldBooking)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEncodeRecords(t *testing.T) {
	records := []Record{
		{SubmittedAt: calendar.FromText("2025-10-12T08:00:00Z"), Name: "A", BookingDate: calendar.FromText("2025-10-14")},
		{Name: "B"},
	}

	out, err := EncodeRecords(records, DateFieldMeal)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"timestamp":"2025-10-12T08:00:00Z","name":"A","mealDate":"2025-10-14"},
		{"timestamp":null,"name":"B","mealDate":null}
	]`, string(out))

	decoded, _, err := DecodeRecords(out, DateFieldMeal)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "2025-10-14", decoded[0].BookingDate.String())

	empty, err := EncodeRecords(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestValidDateField(t *testing.T) {
	assert.True(t, ValidDateField("bookingDate"))
	assert.True(t, ValidDateField("mealDate"))
	assert.False(t, ValidDateField("date"))
}
