package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mealboard/internal/calendar"
	"mealboard/internal/export"
	"mealboard/internal/workbook"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	workbook   string
	sheet      string
	callback   string
	headerRows int
}

func exportCmd(global *globalOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the records JSON of a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "path of the .xlsx file to export")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "workbook sheet name (default: active sheet)")
	cmd.Flags().StringVar(&opts.callback, "callback", "", "wrap the JSON in a call to this function")
	cmd.Flags().IntVar(&opts.headerRows, "header-rows", 1, "leading rows to skip")
	return cmd
}

func runExport(ctx context.Context, w io.Writer, global *globalOptions, opts *exportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.workbook == "" {
		return errors.New("--workbook is required")
	}
	if opts.callback != "" && !export.ValidCallbackName(opts.callback) {
		return fmt.Errorf("%w: %q", export.ErrInvalidCallback, opts.callback)
	}

	loc, err := calendar.LoadLocation(global.timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	cols := export.DefaultColumns()
	reader := workbook.NewReader(opts.workbook, opts.sheet).WithDates(cols.DateIndexes(), loc)
	adapter := export.NewAdapter(reader, export.Options{
		Columns:    cols,
		HeaderRows: opts.headerRows,
		DateField:  global.dateField,
		Logger:     global.logger(),
	})

	payload, err := adapter.Payload(ctx)
	if err != nil {
		return err
	}
	if opts.callback != "" {
		if payload, err = export.WrapCallback(opts.callback, payload); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(w, string(payload))
	return err
}
