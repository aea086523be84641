package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	resolutions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "availability_resolutions_total",
			Help:      "Count of availability resolutions.",
		},
	)

	windowsEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "availability_windows_total",
			Help:      "Count of bookable windows emitted.",
		},
	)

	intervalsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "availability_intervals_skipped_total",
			Help:      "Count of intervals dropped during resolution by reason.",
		},
		[]string{"reason"},
	)

	validationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "schedule_validation_errors_total",
			Help:      "Count of validation errors reported to editors.",
		},
		[]string{"scope"},
	)

	scheduleUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "schedule_updates_total",
			Help:      "Count of accepted schedule edits.",
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "availability_cache_lookups_total",
			Help:      "Count of resolved-window cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(resolutions, windowsEmitted, intervalsSkipped,
			validationErrors, scheduleUpdates, cacheLookups, httpRequests)
	})
}

func ObserveResolution(windows int) {
	resolutions.Inc()
	windowsEmitted.Add(float64(windows))
}

func IncIntervalSkipped(reason string) {
	intervalsSkipped.WithLabelValues(reason).Inc()
}

func AddValidationErrors(scope string, n int) {
	if n <= 0 {
		return
	}
	validationErrors.WithLabelValues(scope).Add(float64(n))
}

func IncScheduleUpdate() {
	scheduleUpdates.Inc()
}

func IncCache(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
