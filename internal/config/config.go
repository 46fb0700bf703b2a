package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/export"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceHTTP     = "http"
	SourceCallback = "callback"
	SourceTable    = "table"

	ReaderSheets   = "sheets"
	ReaderWorkbook = "workbook"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Board      BoardConfig      `yaml:"board"`
	Source     SourceConfig     `yaml:"source"`
	Export     ExportConfig     `yaml:"export"`
	Google     GoogleConfig     `yaml:"google"`
	Workbook   WorkbookConfig   `yaml:"workbook"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// BoardConfig controls how bookings are keyed and listed.
type BoardConfig struct {
	Timezone   string        `yaml:"timezone"`
	DateField  string        `yaml:"date_field"`
	Order      string        `yaml:"order"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Refresh is a cron schedule for periodic reloads; empty disables them.
	Refresh string `yaml:"refresh"`
}

type SourceConfig struct {
	Kind     string        `yaml:"kind"`
	URL      string        `yaml:"url"`
	Callback string        `yaml:"callback"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ExportConfig struct {
	Reader     string        `yaml:"reader"`
	Columns    ColumnsConfig `yaml:"columns"`
	HeaderRows *int          `yaml:"header_rows"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type ColumnsConfig struct {
	Timestamp   *int `yaml:"timestamp"`
	Name        *int `yaml:"name"`
	BookingDate *int `yaml:"booking_date"`
}

// Indexes returns the configured column indexes, defaulting to the
// timestamp, name, date layout of a form response sheet.
func (c ColumnsConfig) Indexes() (timestamp, name, bookingDate int) {
	timestamp, name, bookingDate = 0, 1, 2
	if c.Timestamp != nil {
		timestamp = *c.Timestamp
	}
	if c.Name != nil {
		name = *c.Name
	}
	if c.BookingDate != nil {
		bookingDate = *c.BookingDate
	}
	return timestamp, name, bookingDate
}

// Headers is the number of leading rows to skip. One unless set.
func (c ExportConfig) Headers() int {
	if c.HeaderRows == nil {
		return 1
	}
	return *c.HeaderRows
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID         string `yaml:"spreadsheet_id"`
	Range                 string `yaml:"range"`
}

type WorkbookConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := calendar.LoadLocation(c.Board.Timezone); err != nil {
		return fmt.Errorf("board.timezone: %w", err)
	}

	switch c.Board.DateField {
	case "bookingDate", "mealDate":
	default:
		return fmt.Errorf("board.date_field must be bookingDate or mealDate, got %q", c.Board.DateField)
	}

	switch strings.ToLower(c.Board.Order) {
	case "asc", "desc":
	default:
		return fmt.Errorf("board.order must be asc or desc, got %q", c.Board.Order)
	}

	if c.Board.RetryDelay < 0 {
		return errors.New("board.retry_delay must not be negative")
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.URL == "" {
			return errors.New("source.url is required for http source")
		}
	case SourceCallback:
		if c.Source.URL == "" {
			return errors.New("source.url is required for callback source")
		}
		if !export.ValidCallbackName(c.Source.Callback) {
			return fmt.Errorf("source.callback %q is not a valid identifier", c.Source.Callback)
		}
	case SourceTable:
		if err := c.validateReader(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	if c.Export.HeaderRows != nil && *c.Export.HeaderRows < 0 {
		return errors.New("export.header_rows must not be negative")
	}
	for name, idx := range map[string]*int{
		"timestamp":    c.Export.Columns.Timestamp,
		"name":         c.Export.Columns.Name,
		"booking_date": c.Export.Columns.BookingDate,
	} {
		if idx != nil && *idx < 0 {
			return fmt.Errorf("export.columns.%s must not be negative", name)
		}
	}

	return nil
}

// ExportConfigured reports whether a table reader for the export is set up.
func (c *Config) ExportConfigured() bool {
	return c.validateReader() == nil
}

// validateReader checks the settings of the table reader backing the export.
func (c *Config) validateReader() error {
	switch c.Export.Reader {
	case ReaderSheets:
		if c.Google.SpreadsheetID == "" {
			return errors.New("google.spreadsheet_id is required for sheets reader")
		}
		if c.Google.GoogleCredentialsFile == "" {
			return errors.New("google.credentials_file is required for sheets reader")
		}
	case ReaderWorkbook:
		if c.Workbook.Path == "" {
			return errors.New("workbook.path is required for workbook reader")
		}
	default:
		return fmt.Errorf("unknown export.reader %q", c.Export.Reader)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "mealboard"
	}
	if c.Board.Timezone == "" {
		c.Board.Timezone = "Asia/Dhaka"
	}
	if c.Board.DateField == "" {
		c.Board.DateField = "bookingDate"
	}
	if c.Board.Order == "" {
		c.Board.Order = "asc"
	}
	if c.Board.RetryDelay == 0 {
		c.Board.RetryDelay = 1500 * time.Millisecond
	}

	if c.Source.Kind == "" {
		c.Source.Kind = SourceHTTP
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 15 * time.Second
	}
	if c.Source.Kind == SourceCallback && c.Source.Callback == "" {
		c.Source.Callback = "mealboardCallback"
	}

	if c.Export.Reader == "" {
		c.Export.Reader = ReaderSheets
	}
	if c.Export.CacheTTL == 0 {
		c.Export.CacheTTL = time.Minute
	}
	if c.Google.Range == "" {
		c.Google.Range = "A:C"
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "mealboard:"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
