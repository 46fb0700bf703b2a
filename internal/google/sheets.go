package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mealboard/internal/export"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsReader reads booking rows from a Google spreadsheet range.
type SheetsReader struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	dateColumns   []int
	loc           *time.Location
	logger        *zerolog.Logger
}

func NewSheetsReader(ctx context.Context, credentialsFile, spreadsheetID, readRange string) (*SheetsReader, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	// Только чтение: экспорт ничего не пишет в таблицу
	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return NewSheetsReaderWithService(srv, spreadsheetID, readRange), nil
}

// NewSheetsReaderWithService wraps an already configured Sheets service.
func NewSheetsReaderWithService(srv *sheets.Service, spreadsheetID, readRange string) *SheetsReader {
	nop := zerolog.Nop()
	return &SheetsReader{
		service:       srv,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		loc:           time.UTC,
		logger:        &nop,
	}
}

// WithDates marks the columns holding serial dates and the zone their wall
// clock belongs to.
func (s *SheetsReader) WithDates(columns []int, loc *time.Location) *SheetsReader {
	s.dateColumns = columns
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *SheetsReader) WithLogger(logger *zerolog.Logger) *SheetsReader {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TestConnection проверяет подключение к таблице
func (s *SheetsReader) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ReadRows returns the raw values of the configured range. Date cells come
// back as time.Time in the reader's zone; other cells keep their JSON type.
func (s *SheetsReader) ReadRows(ctx context.Context) ([][]any, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read range %s: %w", s.readRange, err)
	}

	rows := make([][]any, len(resp.Values))
	for i, row := range resp.Values {
		out := make([]any, len(row))
		for j, cell := range row {
			out[j] = s.convertCell(cell, j)
		}
		rows[i] = out
	}

	s.logger.Debug().Int("rows", len(rows)).Str("range", s.readRange).Msg("sheet range read")
	return rows, nil
}

func (s *SheetsReader) convertCell(cell any, col int) any {
	if !export.IsDateColumn(s.dateColumns, col) {
		return cell
	}
	serial, ok := cell.(float64)
	if !ok {
		if n, isNum := cell.(json.Number); isNum {
			f, err := n.Float64()
			if err != nil {
				return cell
			}
			serial = f
		} else {
			return cell
		}
	}
	t, err := export.SerialToTime(serial, s.loc)
	if err != nil {
		s.logger.Debug().Err(err).Float64("serial", serial).Msg("serial date out of range")
		return cell
	}
	return t
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}
