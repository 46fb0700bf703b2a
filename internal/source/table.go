package source

import (
	"context"

	"mealboard/internal/board"
	"mealboard/internal/export"
	"mealboard/internal/models"
)

// Table reads records straight from an export adapter in the same process.
type Table struct {
	Adapter *export.Adapter
}

func NewTable(adapter *export.Adapter) *Table {
	return &Table{Adapter: adapter}
}

func (t *Table) Name() string { return "table" }

func (t *Table) Fetch(ctx context.Context) ([]models.Record, error) {
	records, err := t.Adapter.Records(ctx)
	if err != nil {
		return nil, &board.TransportError{Err: err}
	}
	return records, nil
}
