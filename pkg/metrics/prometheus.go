package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals      *prometheus.CounterVec
	analysisTime *prometheus.HistogramVec
	suggestions  *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	streamTrades *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_signals_total",
				Help: "Signals emitted by the detectors",
			},
			[]string{"symbol", "kind"},
		),
		analysisTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "silverscan_analysis_duration_seconds",
				Help:    "Duration of one full detector pass",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		suggestions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_suggestions_total",
				Help: "Suggestions produced, by action",
			},
			[]string{"action"},
		),
		fetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_fetches_total",
				Help: "Candle fetches, by source and cache outcome",
			},
			[]string{"source", "cache"},
		),
		alerts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_alerts_published_total",
				Help: "Alerts published to the bus",
			},
			[]string{"symbol"},
		),
		streamTrades: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_stream_trades_total",
				Help: "Trades accepted from the live stream",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "silverscan_errors_total",
				Help: "Errors encountered, by type",
			},
			[]string{"type"},
		),
	}
}

// RecordSignals records detector output counts.
func (r *Recorder) RecordSignals(symbol, kind string, count int) {
	r.signals.WithLabelValues(symbol, kind).Add(float64(count))
}

// RecordAnalysisDuration records one detector pass duration.
func (r *Recorder) RecordAnalysisDuration(symbol string, seconds float64) {
	r.analysisTime.WithLabelValues(symbol).Observe(seconds)
}

// RecordSuggestion records a produced suggestion.
func (r *Recorder) RecordSuggestion(action string) {
	r.suggestions.WithLabelValues(action).Inc()
}

// RecordFetch records a candle fetch and whether the cache answered it.
func (r *Recorder) RecordFetch(source string, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	r.fetches.WithLabelValues(source, outcome).Inc()
}

// RecordAlertPublished records one published alert.
func (r *Recorder) RecordAlertPublished(symbol string) {
	r.alerts.WithLabelValues(symbol).Inc()
}

// RecordStreamTrade records one accepted stream trade.
func (r *Recorder) RecordStreamTrade(symbol string) {
	r.streamTrades.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
