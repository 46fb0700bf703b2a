package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MEALBOARD_URL", "https://example.test/exec")

	path := writeConfig(t, `
app:
  name: board
board:
  timezone: Asia/Dhaka
  order: desc
  retry_delay: 2s
source:
  kind: callback
  url: ${MEALBOARD_URL}
export:
  header_rows: 0
  columns:
    name: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "board", cfg.App.Name)
	assert.Equal(t, "https://example.test/exec", cfg.Source.URL)
	assert.Equal(t, "mealboardCallback", cfg.Source.Callback)
	assert.Equal(t, "desc", cfg.Board.Order)
	assert.Equal(t, 2*time.Second, cfg.Board.RetryDelay)
	assert.Equal(t, "bookingDate", cfg.Board.DateField)
	assert.Equal(t, 0, cfg.Export.Headers())

	ts, name, date := cfg.Export.Columns.Indexes()
	assert.Equal(t, []int{0, 3, 2}, []int{ts, name, date})
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, `
board:
  timezone: Mars/Olympus
source:
  url: https://example.test
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "Asia/Dhaka", cfg.Board.Timezone)
	assert.Equal(t, "bookingDate", cfg.Board.DateField)
	assert.Equal(t, "asc", cfg.Board.Order)
	assert.Equal(t, 1500*time.Millisecond, cfg.Board.RetryDelay)
	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, 15*time.Second, cfg.Source.Timeout)
	assert.Equal(t, ReaderSheets, cfg.Export.Reader)
	assert.Equal(t, 1, cfg.Export.Headers())
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "mealboard:", cfg.Redis.Prefix)

	ts, name, date := cfg.Export.Columns.Indexes()
	assert.Equal(t, []int{0, 1, 2}, []int{ts, name, date})
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{Source: SourceConfig{URL: "https://example.test"}}
		cfg.applyDefaults()
		return cfg
	}
	negative := -1

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid http", mutate: func(*Config) {}},
		{name: "meal date field", mutate: func(c *Config) { c.Board.DateField = "mealDate" }},
		{name: "unknown date field", mutate: func(c *Config) { c.Board.DateField = "date" }, wantErr: true},
		{name: "unknown order", mutate: func(c *Config) { c.Board.Order = "random" }, wantErr: true},
		{name: "negative retry delay", mutate: func(c *Config) { c.Board.RetryDelay = -time.Second }, wantErr: true},
		{name: "http without url", mutate: func(c *Config) { c.Source.URL = "" }, wantErr: true},
		{
			name: "callback with invalid name",
			mutate: func(c *Config) {
				c.Source.Kind = SourceCallback
				c.Source.Callback = "alert(1);x"
			},
			wantErr: true,
		},
		{
			name: "callback dotted name",
			mutate: func(c *Config) {
				c.Source.Kind = SourceCallback
				c.Source.Callback = "app.onBookings"
			},
		},
		{
			name:    "table sheets without spreadsheet",
			mutate:  func(c *Config) { c.Source.Kind = SourceTable },
			wantErr: true,
		},
		{
			name: "table workbook",
			mutate: func(c *Config) {
				c.Source.Kind = SourceTable
				c.Export.Reader = ReaderWorkbook
				c.Workbook.Path = "bookings.xlsx"
			},
		},
		{
			name: "table unknown reader",
			mutate: func(c *Config) {
				c.Source.Kind = SourceTable
				c.Export.Reader = "csv"
			},
			wantErr: true,
		},
		{name: "unknown kind", mutate: func(c *Config) { c.Source.Kind = "ftp" }, wantErr: true},
		{name: "negative column", mutate: func(c *Config) { c.Export.Columns.Name = &negative }, wantErr: true},
		{name: "negative header rows", mutate: func(c *Config) { c.Export.HeaderRows = &negative }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExportConfigured(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.False(t, cfg.ExportConfigured())

	cfg.Google.SpreadsheetID = "sheet"
	cfg.Google.GoogleCredentialsFile = "creds.json"
	assert.True(t, cfg.ExportConfigured())

	cfg.Export.Reader = ReaderWorkbook
	assert.False(t, cfg.ExportConfigured())
	cfg.Workbook.Path = "bookings.xlsx"
	assert.True(t, cfg.ExportConfigured())
}
