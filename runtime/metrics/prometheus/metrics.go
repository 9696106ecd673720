package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taskkit"

var (
	// fetchesTotal counts fetch-and-lock requests.
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of fetch-and-lock requests",
		},
		[]string{"status"}, // status: success, error
	)

	// fetchDuration is a histogram of fetch-and-lock duration, long polls included.
	fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch-and-lock requests in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// tasksFetchedTotal counts tasks locked by this worker.
	tasksFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_fetched_total",
			Help:      "Total number of tasks fetched and locked",
		},
	)

	// handlersActive is a gauge of handlers currently running.
	handlersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handlers_active",
			Help:      "Number of task handlers currently running",
		},
	)

	// handlerDuration is a histogram of handler execution time.
	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Duration of task handlers in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"topic"},
	)

	// tasksHandledTotal counts tasks by how their handling ended.
	tasksHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_handled_total",
			Help:      "Total number of tasks handed to handlers or skipped",
		},
		[]string{"topic", "status"}, // status: success, panic, skipped
	)

	// engineRequestDuration is a histogram of engine call duration.
	engineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Duration of engine REST calls in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"operation"},
	)

	// engineRequestsTotal counts engine calls by translated outcome.
	engineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_requests_total",
			Help:      "Total number of engine REST calls by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success or the error kind, e.g. not_found
	)

	// backoffsTotal counts pauses between fetches.
	backoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoffs_total",
			Help:      "Total number of backoff pauses between fetches",
		},
		[]string{"reason"},
	)

	// backoffDelay is the most recent backoff delay.
	backoffDelay = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backoff_delay_seconds",
			Help:      "Most recent backoff delay in seconds",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		fetchesTotal,
		fetchDuration,
		tasksFetchedTotal,
		handlersActive,
		handlerDuration,
		tasksHandledTotal,
		engineRequestDuration,
		engineRequestsTotal,
		backoffsTotal,
		backoffDelay,
	}
)

// RecordFetch records a fetch-and-lock request and the tasks it returned.
func RecordFetch(status string, tasks int, durationSeconds float64) {
	fetchesTotal.WithLabelValues(status).Inc()
	fetchDuration.Observe(durationSeconds)
	if tasks > 0 {
		tasksFetchedTotal.Add(float64(tasks))
	}
}

// RecordHandlerStart records a handler starting.
func RecordHandlerStart() {
	handlersActive.Inc()
}

// RecordHandlerEnd records a handler returning.
func RecordHandlerEnd(topic, status string, durationSeconds float64) {
	handlersActive.Dec()
	handlerDuration.WithLabelValues(topic).Observe(durationSeconds)
	tasksHandledTotal.WithLabelValues(topic, status).Inc()
}

// RecordTaskSkipped records a re-delivered task that was not handled.
func RecordTaskSkipped(topic string) {
	tasksHandledTotal.WithLabelValues(topic, statusSkipped).Inc()
}

// RecordEngineRequest records an engine call.
func RecordEngineRequest(operation, outcome string, durationSeconds float64) {
	engineRequestDuration.WithLabelValues(operation).Observe(durationSeconds)
	engineRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordBackoff records a pause before the next fetch.
func RecordBackoff(reason string, delaySeconds float64) {
	backoffsTotal.WithLabelValues(reason).Inc()
	backoffDelay.Set(delaySeconds)
}
