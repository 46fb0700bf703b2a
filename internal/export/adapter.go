package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mealboard/internal/calendar"
	"mealboard/internal/domain"
	"mealboard/internal/models"

	"github.com/rs/zerolog"
)

// Columns are zero-based indexes of the fields in a table row.
type Columns struct {
	Timestamp   int `yaml:"timestamp"`
	Name        int `yaml:"name"`
	BookingDate int `yaml:"booking_date"`
}

// DefaultColumns matches a form response sheet: timestamp, name, date.
func DefaultColumns() Columns {
	return Columns{Timestamp: 0, Name: 1, BookingDate: 2}
}

// DateIndexes returns the columns holding dates.
func (c Columns) DateIndexes() []int {
	return []int{c.Timestamp, c.BookingDate}
}

// Options configure an Adapter.
type Options struct {
	Columns    Columns
	HeaderRows int
	DateField  string
	Cache      domain.PayloadCache
	CacheKey   string
	CacheTTL   time.Duration
	Logger     *zerolog.Logger
}

// Adapter turns table rows into booking records and their JSON payload.
type Adapter struct {
	reader domain.RowReader
	opts   Options
	logger *zerolog.Logger
}

func NewAdapter(reader domain.RowReader, opts Options) *Adapter {
	if opts.DateField == "" {
		opts.DateField = models.DateFieldBooking
	}
	if opts.HeaderRows < 0 {
		opts.HeaderRows = 0
	}
	if opts.CacheKey == "" {
		opts.CacheKey = "export:payload:" + opts.DateField
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Adapter{reader: reader, opts: opts, logger: logger}
}

// DateField is the JSON name of the booking date in payloads.
func (a *Adapter) DateField() string { return a.opts.DateField }

// Records reads the table and maps it to records.
func (a *Adapter) Records(ctx context.Context) ([]models.Record, error) {
	rows, err := a.reader.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	records := MapRows(rows, a.opts.Columns, a.opts.HeaderRows)
	a.logger.Debug().Int("rows", len(rows)).Int("records", len(records)).Msg("rows mapped")
	return records, nil
}

// Payload returns the JSON array of all records, served from the cache when fresh.
func (a *Adapter) Payload(ctx context.Context) ([]byte, error) {
	if a.opts.Cache != nil && a.opts.CacheTTL > 0 {
		cached, ok, err := a.opts.Cache.Get(ctx, a.opts.CacheKey)
		if err != nil {
			a.logger.Warn().Err(err).Msg("payload cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	records, err := a.Records(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := models.EncodeRecords(records, a.opts.DateField)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	if a.opts.Cache != nil && a.opts.CacheTTL > 0 {
		if err := a.opts.Cache.Set(ctx, a.opts.CacheKey, payload, a.opts.CacheTTL); err != nil {
			a.logger.Warn().Err(err).Msg("payload cache write failed")
		}
	}
	return payload, nil
}

// Invalidate drops the cached payload.
func (a *Adapter) Invalidate(ctx context.Context) error {
	if a.opts.Cache == nil {
		return nil
	}
	return a.opts.Cache.Delete(ctx, a.opts.CacheKey)
}

// MapRows converts table rows into records, skipping header rows and rows
// without a name. Short rows yield absent dates.
func MapRows(rows [][]any, cols Columns, headerRows int) []models.Record {
	if headerRows > len(rows) {
		headerRows = len(rows)
	}
	if headerRows < 0 {
		headerRows = 0
	}

	records := make([]models.Record, 0, len(rows)-headerRows)
	for _, row := range rows[headerRows:] {
		name := strings.TrimSpace(cellText(cell(row, cols.Name)))
		if name == "" {
			continue
		}
		records = append(records, models.Record{
			SubmittedAt: CellValue(cell(row, cols.Timestamp)),
			Name:        name,
			BookingDate: CellValue(cell(row, cols.BookingDate)),
		})
	}
	return records
}

// CellValue converts a raw cell into a date value. Readers convert serial
// dates to time.Time; bare numbers left here are read as epoch milliseconds.
func CellValue(v any) calendar.Value {
	switch x := v.(type) {
	case nil:
		return calendar.Absent()
	case time.Time:
		return calendar.FromTime(x)
	case *time.Time:
		if x == nil {
			return calendar.Absent()
		}
		return calendar.FromTime(*x)
	case string:
		return calendar.FromText(x)
	case float64:
		return calendar.FromEpochMillis(x)
	case float32:
		return calendar.FromEpochMillis(float64(x))
	case int:
		return calendar.FromEpochMillis(float64(x))
	case int64:
		return calendar.FromEpochMillis(float64(x))
	default:
		return calendar.FromText(fmt.Sprint(x))
	}
}

func cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
