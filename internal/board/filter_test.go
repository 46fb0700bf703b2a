package board

import (
	"testing"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dhaka(t *testing.T) *time.Location {
	t.Helper()
	loc, err := calendar.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	return loc
}

func rec(name, submitted, booking string) models.Record {
	return models.Record{
		Name:        name,
		SubmittedAt: calendar.FromText(submitted),
		BookingDate: calendar.FromText(booking),
	}
}

func names(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestFilterAcrossUTCMidnight(t *testing.T) {
	loc := dhaka(t)
	records := []models.Record{
		rec("A", "", "2025-10-13T19:00:00Z"),
		rec("B", "", "2025-10-14T01:00:00Z"),
	}

	got, err := FilterText(records, "2025-10-14", loc, OrderAscending)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names(got))
	assert.Len(t, got, 2)
}

func TestFilterEmpty(t *testing.T) {
	got, err := FilterText(nil, "2025-10-14", dhaka(t), OrderAscending)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterInvalidSelection(t *testing.T) {
	records := []models.Record{rec("A", "", "2025-10-14")}

	_, err := FilterText(records, "2025-13-01", dhaka(t), OrderAscending)
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrInvalidSelection)
}

func TestFilterSkipsAbsentAndInvalidDates(t *testing.T) {
	loc := dhaka(t)
	records := []models.Record{
		rec("absent", "", ""),
		rec("garbage", "", "whenever"),
		rec("ok", "", "2025-10-14"),
	}

	got, err := FilterText(records, "2025-10-14", loc, OrderAscending)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(got))
}

func TestFilterDayBoundary(t *testing.T) {
	loc := dhaka(t)
	late := models.Record{Name: "late", BookingDate: calendar.FromTime(time.Date(2025, 10, 14, 23, 59, 0, 0, loc))}
	early := models.Record{Name: "early", BookingDate: calendar.FromTime(time.Date(2025, 10, 15, 0, 1, 0, 0, loc))}
	records := []models.Record{late, early}

	for _, day := range []string{"2025-10-14", "2025-10-15"} {
		got, err := FilterText(records, day, loc, OrderAscending)
		require.NoError(t, err)
		assert.Len(t, got, 1, day)
	}
}

func TestFilterOrdering(t *testing.T) {
	loc := dhaka(t)
	records := []models.Record{
		rec("no-stamp-1", "", "2025-10-14"),
		rec("late", "2025-10-12T10:00:00Z", "2025-10-14"),
		rec("early", "2025-10-11T10:00:00Z", "2025-10-14"),
		rec("tie-1", "2025-10-11T12:00:00Z", "2025-10-14"),
		rec("tie-2", "2025-10-11T12:00:00Z", "2025-10-14"),
		rec("bad-stamp", "yesterday", "2025-10-14"),
		rec("other-day", "2025-10-10T10:00:00Z", "2025-10-15"),
	}

	asc, err := FilterText(records, "2025-10-14", loc, OrderAscending)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "tie-1", "tie-2", "late", "no-stamp-1", "bad-stamp"}, names(asc))

	desc, err := FilterText(records, "2025-10-14", loc, OrderDescending)
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "tie-1", "tie-2", "early", "no-stamp-1", "bad-stamp"}, names(desc))

	// Input order untouched.
	assert.Equal(t, "no-stamp-1", records[0].Name)
}

func TestFilterIdempotent(t *testing.T) {
	loc := dhaka(t)
	records := []models.Record{
		rec("B", "2025-10-12T10:00:00Z", "2025-10-14"),
		rec("A", "2025-10-11T10:00:00Z", "2025-10-14"),
	}

	first, err := FilterText(records, "2025-10-14", loc, OrderAscending)
	require.NoError(t, err)
	second, err := FilterText(records, "2025-10-14", loc, OrderAscending)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilterInvariantUnderLocalZone(t *testing.T) {
	loc := dhaka(t)
	records := []models.Record{
		rec("A", "", "2025-10-13T19:00:00Z"),
		rec("B", "", "2025-10-14T01:00:00Z"),
		rec("C", "", "2025-10-14T18:30:00Z"),
	}

	original := time.Local
	t.Cleanup(func() { time.Local = original })

	for _, name := range []string{"UTC", "America/Los_Angeles", "Asia/Tokyo", "Pacific/Kiritimati"} {
		zone, err := time.LoadLocation(name)
		require.NoError(t, err)
		time.Local = zone

		got, err := FilterText(records, "2025-10-14", loc, OrderAscending)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, names(got), name)
	}
}

func TestFilterRoundTrip(t *testing.T) {
	loc := dhaka(t)
	sel, err := calendar.ParseSelection("2025-10-14")
	require.NoError(t, err)

	native := time.Date(sel.Year, time.Month(sel.Month), sel.Day, 0, 0, 0, 0, loc)
	payload, err := models.EncodeRecords([]models.Record{
		{Name: "A", BookingDate: calendar.FromTime(native)},
	}, models.DateFieldBooking)
	require.NoError(t, err)

	exported, _, err := models.DecodeRecords(payload, models.DateFieldBooking)
	require.NoError(t, err)

	got := Filter(exported, sel, loc, OrderAscending)
	assert.Equal(t, []string{"A"}, names(got))
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderAscending, o)

	o, err = ParseOrder("DESC")
	require.NoError(t, err)
	assert.Equal(t, OrderDescending, o)
	assert.Equal(t, "desc", o.String())

	_, err = ParseOrder("random")
	assert.Error(t, err)
}
