package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                           sync.Once
	metricsRouter                  *chi.Mux
	httpRequestDurationHistogram   *prometheus.HistogramVec
	clientRequestDurationHistogram *prometheus.HistogramVec
	stakingOperationsTotal         *prometheus.CounterVec
	eventsEmittedTotal             *prometheus.CounterVec
	eventsDroppedTotal             prometheus.Counter
	totalStakedGauge               prometheus.Gauge
	eventSubscribersGauge          prometheus.Gauge
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	go func() {
		metricsAddr := fmt.Sprintf(":%d", metricsPort)
		err := http.ListenAndServe(metricsAddr, metricsRouter)
		if err != nil {
			log.Fatal().Err(err).Msgf("error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"endpoint", "status"},
	)

	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"client", "method", "status"},
	)

	stakingOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staking_operations_total",
			Help: "Total number of staking operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	eventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_emitted_total",
			Help: "Total number of ledger journal events emitted by type.",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_events_dropped_total",
			Help: "Total number of events dropped from the live distribution buffer.",
		},
	)

	totalStakedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "staked_tokens",
			Help: "Number of tokens currently staked.",
		},
	)

	eventSubscribersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_subscribers",
			Help: "Number of connected websocket event subscribers.",
		},
	)

	prometheus.MustRegister(
		httpRequestDurationHistogram,
		clientRequestDurationHistogram,
		stakingOperationsTotal,
		eventsEmittedTotal,
		eventsDroppedTotal,
		totalStakedGauge,
		eventSubscribersGauge,
	)
}

// StartHttpRequestDurationTimer starts a timer to measure http request handling duration.
func StartHttpRequestDurationTimer(endpoint string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Observe(duration)
	}
}

// StartClientRequestDurationTimer starts a timer to measure an outgoing
// client request. Status 0 records a request that never got a response.
func StartClientRequestDurationTimer(client, method string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(client, method, fmt.Sprintf("%d", statusCode)).Observe(duration)
	}
}

func RecordStakingOperation(operation string, outcome Outcome) {
	stakingOperationsTotal.WithLabelValues(operation, outcome.String()).Inc()
}

func RecordEventEmitted(eventType string) {
	eventsEmittedTotal.WithLabelValues(eventType).Inc()
}

func RecordEventDropped() {
	eventsDroppedTotal.Inc()
}

func SetTotalStaked(count uint64) {
	totalStakedGauge.Set(float64(count))
}

func IncEventSubscribers() {
	eventSubscribersGauge.Inc()
}

func DecEventSubscribers() {
	eventSubscribersGauge.Dec()
}
