package workbook

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "bookings.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReaderReadRows(t *testing.T) {
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	path := writeWorkbook(t, "Responses", [][]any{
		{"Timestamp", "Name", "Booking Date"},
		{45942.25, "Rahim", 45944.5},
		{45942.5, "Karim", "2025-10-15"},
		{45942.75, "Nadia"},
	})

	rows, err := NewReader(path, "Responses").WithDates([]int{0, 2}, dhaka).ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Timestamp", rows[0][0])
	assert.Equal(t, "Rahim", rows[1][1])
	assert.Equal(t, time.Date(2025, 10, 14, 12, 0, 0, 0, dhaka), rows[1][2])
	assert.Equal(t, time.Date(2025, 10, 12, 6, 0, 0, 0, dhaka), rows[1][0])
	assert.Equal(t, "2025-10-15", rows[2][2])
	assert.Len(t, rows[3], 2)
}

func TestReaderActiveSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{{"Timestamp", "Name", "Date"}, {"", "A", "2025-10-14"}})

	rows, err := NewReader(path, "").ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1][0])
	assert.Equal(t, "2025-10-14", rows[1][2])
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.xlsx"), "").ReadRows(context.Background())
	assert.Error(t, err)

	path := writeWorkbook(t, "Sheet1", [][]any{{"x"}})
	_, err = NewReader(path, "Nope").ReadRows(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReader(path, "").ReadRows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
