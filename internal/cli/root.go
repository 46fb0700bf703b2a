package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	timezone  string
	dateField string
	order     string
	verbose   bool
	now       func() time.Time
}

// NewRootCmd builds the boardctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{now: time.Now}
	return newRootCmd(opts)
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "boardctl",
		Short:         "Show meal bookings for a day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.timezone, "timezone", "Asia/Dhaka", "timezone booking dates are keyed in")
	rootCmd.PersistentFlags().StringVar(&opts.dateField, "date-field", "bookingDate", "JSON field holding the booked day (bookingDate or mealDate)")
	rootCmd.PersistentFlags().StringVar(&opts.order, "order", "asc", "order by submission time (asc or desc)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fetch attempts to stderr")

	rootCmd.AddCommand(dayCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	return rootCmd
}

func (o *globalOptions) logger() *zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &l
}

// Execute runs boardctl against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
