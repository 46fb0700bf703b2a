package workbook

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mealboard/internal/export"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Reader reads booking rows from a sheet of a local .xlsx workbook. The file
// is reopened on every read so edits are picked up by the next load.
type Reader struct {
	path        string
	sheet       string
	dateColumns []int
	loc         *time.Location
	logger      *zerolog.Logger
}

func NewReader(path, sheet string) *Reader {
	nop := zerolog.Nop()
	return &Reader{path: path, sheet: sheet, loc: time.UTC, logger: &nop}
}

// WithDates marks the columns holding serial dates and the zone their wall
// clock belongs to.
func (r *Reader) WithDates(columns []int, loc *time.Location) *Reader {
	r.dateColumns = columns
	if loc != nil {
		r.loc = loc
	}
	return r
}

func (r *Reader) WithLogger(logger *zerolog.Logger) *Reader {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *Reader) ReadRows(ctx context.Context) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheet, err)
	}

	rows := make([][]any, len(raw))
	for i, row := range raw {
		out := make([]any, len(row))
		for j, cell := range row {
			out[j] = r.convertCell(cell, j)
		}
		rows[i] = out
	}

	r.logger.Debug().Str("sheet", sheet).Int("rows", len(rows)).Msg("workbook read")
	return rows, nil
}

// convertCell turns serial numbers in date columns into times. Anything else
// stays text for the date parser.
func (r *Reader) convertCell(cell string, col int) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if !export.IsDateColumn(r.dateColumns, col) {
		return cell
	}
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	t, err := export.SerialToTime(serial, r.loc)
	if err != nil {
		return cell
	}
	return t
}
