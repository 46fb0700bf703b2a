package metrics

import (
	"sync"

	"mealboard/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	boardLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "board_loads_total",
			Help:      "Record loads by outcome.",
		},
		[]string{"outcome"},
	)

	boardViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "board_views_total",
			Help:      "Day views served by session state.",
		},
		[]string{"state"},
	)

	exportRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "export_requests_total",
			Help:      "Export payload requests by response format.",
		},
		[]string{"format"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, boardLoads, boardViews, exportRequests)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncLoad counts a load outcome.
func IncLoad(outcome string) {
	boardLoads.WithLabelValues(outcome).Inc()
}

func IncView(state string) {
	boardViews.WithLabelValues(state).Inc()
}

// IncExport counts an export response: "json" or "callback".
func IncExport(format string) {
	exportRequests.WithLabelValues(format).Inc()
}

// SubscribeLoads counts board load events published on bus.
func SubscribeLoads(bus *events.EventBus) {
	outcomes := map[string]string{
		events.EventRecordsLoaded: "success",
		events.EventLoadRetrying:  "retry",
		events.EventLoadFailed:    "failure",
	}
	for eventType, outcome := range outcomes {
		outcome := outcome
		bus.Subscribe(eventType, func(*events.Event) error {
			IncLoad(outcome)
			return nil
		})
	}
}
