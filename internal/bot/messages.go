package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mealboard/internal/board"
)

const (
	startMessage = "🍽 Meal board\n\n" +
		"/today - bookings for today\n" +
		"/date YYYY-MM-DD - bookings for a day\n" +
		"/reload - fetch fresh data\n\n" +
		"You can also just send a date like 2025-10-14."
	dateUsageMessage      = "Usage: /date YYYY-MM-DD"
	unknownCommandMessage = "Unknown command. Send /start for help."
	loadingMessage        = "⏳ Bookings are still loading, try again in a moment."
	unavailableMessage    = "⚠️ Booking data is unavailable right now. Send /reload to try again."
	reloadStartedMessage  = "🔄 Reloading bookings..."
	reloadBusyMessage     = "🔄 A reload is already running."
)

func invalidDateMessage(input string) string {
	return fmt.Sprintf("⚠️ %q is not a valid date. Use YYYY-MM-DD, for example 2025-10-14.", input)
}

func reloadDoneMessage(count int) string {
	return fmt.Sprintf("✅ Reloaded %d bookings.", count)
}

func isBusy(err error) bool {
	return errors.Is(err, board.ErrLoadInProgress)
}

// formatView renders a day view as a numbered list with submission times in loc.
func formatView(view board.View, loc *time.Location) string {
	switch view.State {
	case board.StateLoading:
		return loadingMessage
	case board.StateUnavailable:
		return unavailableMessage
	}

	if view.Count == 0 {
		return fmt.Sprintf("📅 %s\nNo bookings.", view.Date)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %s\nBookings: %d\n", view.Date, view.Count)
	for i, rec := range view.Records {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, rec.Name)
		if t, err := rec.SubmittedAt.Instant(loc); err == nil {
			fmt.Fprintf(&sb, " (submitted %s)", t.In(loc).Format("02 Jan 15:04"))
		}
	}
	return sb.String()
}
