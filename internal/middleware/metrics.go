package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Update metrics
	updatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deface_bot_updates_received_total",
		Help: "Total number of updates received",
	}, []string{"kind"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deface_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Photo pipeline metrics
	photosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deface_bot_photos_processed_total",
		Help: "Total number of photos processed",
	}, []string{"status"})

	defaceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deface_bot_deface_request_duration_seconds",
		Help:    "Duration of deface API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// Settings metrics
	settingsUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deface_bot_settings_updates_total",
		Help: "Total number of chat settings updates",
	}, []string{"setting", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deface_bot_cache_hits_total",
		Help: "Total number of processed image cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deface_bot_cache_misses_total",
		Help: "Total number of processed image cache misses",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordUpdateReceived records a received update by kind
func (m *Metrics) RecordUpdateReceived(kind string) {
	updatesReceived.WithLabelValues(kind).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordPhotoProcessed records the outcome of one photo pipeline run
func (m *Metrics) RecordPhotoProcessed(status string) {
	photosProcessed.WithLabelValues(status).Inc()
}

// RecordDefaceRequest records a deface API request
func (m *Metrics) RecordDefaceRequest(status string, duration time.Duration) {
	defaceRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSettingsUpdate records a settings mutation attempt
func (m *Metrics) RecordSettingsUpdate(setting, status string) {
	settingsUpdates.WithLabelValues(setting, status).Inc()
}

// RecordCacheHit records a processed image cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a processed image cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
