package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mealboard/internal/board"
	"mealboard/internal/calendar"
	"mealboard/internal/export"
	"mealboard/internal/models"
	"mealboard/internal/source"
	"mealboard/internal/workbook"
	"mealboard/internal/worker"

	"github.com/spf13/cobra"
)

type dayOptions struct {
	url        string
	callback   string
	workbook   string
	sheet      string
	timeout    time.Duration
	retryDelay time.Duration
}

func dayCmd(global *globalOptions) *cobra.Command {
	opts := &dayOptions{}

	cmd := &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "List bookings for a day (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Today follows the viewer's own calendar.
			date := calendar.SelectionFromTime(global.now()).Key()
			if len(args) > 0 {
				date = args[0]
			}
			return runDay(cmd.Context(), cmd.OutOrStdout(), global, opts, date)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "export endpoint URL")
	cmd.Flags().StringVar(&opts.callback, "callback", "", "fetch through a callback-wrapped response with this function name")
	cmd.Flags().StringVar(&opts.workbook, "workbook", "", "read bookings from a local .xlsx file instead of a URL")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "workbook sheet name (default: active sheet)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", source.DefaultTimeout, "request timeout")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", 1500*time.Millisecond, "pause before the single retry")
	return cmd
}

func runDay(ctx context.Context, w io.Writer, global *globalOptions, opts *dayOptions, date string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sel, err := calendar.ParseSelection(date)
	if err != nil {
		_, _ = fmt.Fprintln(w, Error(fmt.Sprintf("invalid date %q: use YYYY-MM-DD", date)))
		return err
	}

	loc, err := calendar.LoadLocation(global.timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	order, err := board.ParseOrder(global.order)
	if err != nil {
		return err
	}
	if !models.ValidDateField(global.dateField) {
		return fmt.Errorf("unsupported date field %q", global.dateField)
	}

	src, err := buildSource(global, opts, loc)
	if err != nil {
		return err
	}

	session := board.NewSession(src,
		board.WithLocation(loc),
		board.WithOrder(order),
		board.WithRetryPolicy(worker.SingleRetry(opts.retryDelay)),
		board.WithLogger(global.logger()),
	)

	_, _ = fmt.Fprintln(w, Silent("Loading bookings..."))
	if err := session.Load(ctx); err != nil {
		_, _ = fmt.Fprintln(w, Error("Booking data is unavailable."))
		return err
	}

	renderView(w, session.ViewSelection(sel), loc)
	return nil
}

func buildSource(global *globalOptions, opts *dayOptions, loc *time.Location) (board.Source, error) {
	switch {
	case opts.workbook != "":
		cols := export.DefaultColumns()
		reader := workbook.NewReader(opts.workbook, opts.sheet).
			WithDates(cols.DateIndexes(), loc).
			WithLogger(global.logger())
		adapter := export.NewAdapter(reader, export.Options{
			Columns:    cols,
			HeaderRows: 1,
			DateField:  global.dateField,
		})
		return source.NewTable(adapter), nil
	case opts.url != "" && opts.callback != "":
		if !export.ValidCallbackName(opts.callback) {
			return nil, fmt.Errorf("%w: %q", export.ErrInvalidCallback, opts.callback)
		}
		return source.NewCallback(opts.url, opts.callback, global.dateField, opts.timeout), nil
	case opts.url != "":
		return source.NewHTTP(opts.url, global.dateField, opts.timeout), nil
	default:
		return nil, errors.New("one of --url or --workbook is required")
	}
}

func renderView(w io.Writer, view board.View, loc *time.Location) {
	label := "bookings"
	if view.Count == 1 {
		label = "booking"
	}
	_, _ = fmt.Fprintf(w, "%s  %s\n", Primary(view.Date), Silent(fmt.Sprintf("%d %s", view.Count, label)))

	if view.Count == 0 {
		_, _ = fmt.Fprintln(w, Warning("No bookings for this day."))
		return
	}

	for i, rec := range view.Records {
		subtitle := "submitted: unknown"
		if t, err := rec.SubmittedAt.Instant(loc); err == nil {
			subtitle = "submitted " + t.In(loc).Format("02 Jan 2006 15:04")
		}
		_, _ = fmt.Fprintln(w, Card(fmt.Sprintf("%d. %s", i+1, rec.Name), subtitle))
	}
}
