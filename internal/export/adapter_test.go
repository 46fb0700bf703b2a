package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	rows  [][]any
	err   error
	calls int
}

func (f *fakeReader) ReadRows(ctx context.Context) ([][]any, error) {
	f.calls++
	return f.rows, f.err
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, payload, ttl)
	return args.Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func sheetRows() [][]any {
	stamp := time.Date(2025, 10, 12, 9, 30, 0, 0, time.UTC)
	return [][]any{
		{"Timestamp", "Name", "Booking Date"},
		{stamp, "Rahim", "2025-10-14"},
		{stamp, "  ", "2025-10-14"},
		{nil, "Karim"},
		{"", nil, "2025-10-15"},
		{"10/12/2025 10:00:00", 1234, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)},
	}
}

func TestMapRows(t *testing.T) {
	records := MapRows(sheetRows(), DefaultColumns(), 1)
	require.Len(t, records, 3)

	assert.Equal(t, "Rahim", records[0].Name)
	assert.True(t, records[0].SubmittedAt.Present())
	assert.Equal(t, "2025-10-14", records[0].BookingDate.String())

	assert.Equal(t, "Karim", records[1].Name)
	assert.False(t, records[1].SubmittedAt.Present())
	assert.False(t, records[1].BookingDate.Present())

	assert.Equal(t, "1234", records[2].Name)
	assert.True(t, records[2].BookingDate.Present())
}

func TestMapRowsHeaderBounds(t *testing.T) {
	assert.Empty(t, MapRows(nil, DefaultColumns(), 1))
	assert.Empty(t, MapRows([][]any{{"only header"}}, DefaultColumns(), 5))
	assert.Len(t, MapRows([][]any{{nil, "A", nil}}, DefaultColumns(), -1), 1)
}

func TestMapRowsCustomColumns(t *testing.T) {
	rows := [][]any{{"2025-10-14", "x", "Rahim", "2025-10-12T10:00:00Z"}}
	records := MapRows(rows, Columns{Timestamp: 3, Name: 2, BookingDate: 0}, 0)
	require.Len(t, records, 1)
	assert.Equal(t, "Rahim", records[0].Name)
	assert.Equal(t, "2025-10-14", records[0].BookingDate.String())
	assert.Equal(t, "2025-10-12T10:00:00Z", records[0].SubmittedAt.String())
}

func TestCellValue(t *testing.T) {
	assert.False(t, CellValue(nil).Present())
	assert.False(t, CellValue("").Present())
	assert.False(t, CellValue((*time.Time)(nil)).Present())

	key, err := calendar.DayKey(CellValue(float64(1760382000000)), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-13", key)

	key, err = calendar.DayKey(CellValue(int64(1760382000000)), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-13", key)

	_, err = calendar.DayKey(CellValue(true), time.UTC)
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
}

func TestAdapterPayload(t *testing.T) {
	reader := &fakeReader{rows: sheetRows()}
	adapter := NewAdapter(reader, Options{Columns: DefaultColumns(), HeaderRows: 1, DateField: models.DateFieldMeal})

	payload, err := adapter.Payload(context.Background())
	require.NoError(t, err)

	records, skipped, err := models.DecodeRecords(payload, models.DateFieldMeal)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, records, 3)
	assert.Equal(t, models.DateFieldMeal, adapter.DateField())
	assert.NoError(t, adapter.Invalidate(context.Background()))
}

func TestAdapterPayloadEmptyTable(t *testing.T) {
	adapter := NewAdapter(&fakeReader{rows: [][]any{{"Timestamp", "Name", "Date"}}}, Options{HeaderRows: 1})

	payload, err := adapter.Payload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
}

func TestAdapterReaderError(t *testing.T) {
	adapter := NewAdapter(&fakeReader{err: errors.New("quota exceeded")}, Options{})

	_, err := adapter.Payload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAdapterUsesCache(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{rows: sheetRows()}
	cache := new(mockCache)
	adapter := NewAdapter(reader, Options{HeaderRows: 1, Cache: cache, CacheTTL: time.Minute})

	cache.On("Get", ctx, "export:payload:bookingDate").Return(nil, false, nil).Once()
	cache.On("Set", ctx, "export:payload:bookingDate", mock.Anything, time.Minute).Return(nil).Once()

	first, err := adapter.Payload(ctx)
	require.NoError(t, err)

	cache.On("Get", ctx, "export:payload:bookingDate").Return(first, true, nil).Once()
	second, err := adapter.Payload(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reader.calls)
	cache.AssertExpectations(t)
}

func TestAdapterCacheErrorsAreNotFatal(t *testing.T) {
	ctx := context.Background()
	cache := new(mockCache)
	adapter := NewAdapter(&fakeReader{rows: sheetRows()}, Options{HeaderRows: 1, Cache: cache, CacheTTL: time.Minute, CacheKey: "k"})

	cache.On("Get", ctx, "k").Return(nil, false, errors.New("redis down")).Once()
	cache.On("Set", ctx, "k", mock.Anything, time.Minute).Return(errors.New("redis down")).Once()
	cache.On("Delete", ctx, "k").Return(nil).Once()

	_, err := adapter.Payload(ctx)
	require.NoError(t, err)
	require.NoError(t, adapter.Invalidate(ctx))
	cache.AssertExpectations(t)
}
