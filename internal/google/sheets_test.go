package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsReader) {
	t.Helper()
	ctx := context.Background()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return mux, NewSheetsReaderWithService(srv, "bookings_tid", "Bookings!A:C")
}

func TestSheetsReader_ReadRows(t *testing.T) {
	mux, reader := setupMockServer(t)
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	reader.WithDates([]int{0, 2}, dhaka)

	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:C", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UNFORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
		assert.Equal(t, "SERIAL_NUMBER", r.URL.Query().Get("dateTimeRenderOption"))
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{
				{"Timestamp", "Name", "Booking Date"},
				{45942.25, "Rahim", 45944.5},
				{45942.5, "Karim", "next week"},
			},
		})
	})

	rows, err := reader.ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Timestamp", rows[0][0])

	booked, ok := rows[1][2].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 14, 12, 0, 0, 0, dhaka), booked)
	assert.Equal(t, "Rahim", rows[1][1])

	assert.IsType(t, time.Time{}, rows[2][0])
	assert.Equal(t, "next week", rows[2][2])
}

func TestSheetsReader_ReadRowsError(t *testing.T) {
	mux, reader := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:C", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	})

	_, err := reader.ReadRows(context.Background())
	assert.Error(t, err)
}

func TestSheetsReader_TestConnection(t *testing.T) {
	mux, reader := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{SpreadsheetId: "bookings_tid"})
	})

	assert.NoError(t, reader.TestConnection(context.Background()))
}

func TestNewSheetsReaderBadCredentials(t *testing.T) {
	_, err := NewSheetsReader(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "id", "A:C")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"nope"}`), 0o600))
	_, err = NewSheetsReader(context.Background(), path, "id", "A:C")
	assert.Error(t, err)
}

func TestGetServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"board@project.iam.gserviceaccount.com"}`), 0o600))

	email, err := GetServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "board@project.iam.gserviceaccount.com", email)
}
