package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PipelineBars counts closed bars flushed by the realtime pipeline.
	PipelineBars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverscan",
			Subsystem: "pipeline",
			Name:      "bars_total",
			Help:      "Closed bars flushed downstream",
		},
		[]string{"symbol", "interval"},
	)

	// PipelineFlushLatency tracks sink write latency per backend.
	PipelineFlushLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "silverscan",
			Subsystem: "pipeline",
			Name:      "flush_seconds",
			Help:      "Latency of flushing a closed bar to a sink",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// PipelineDrops counts trades and bars dropped under pressure.
	PipelineDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverscan",
			Subsystem: "pipeline",
			Name:      "drops_total",
			Help:      "Inputs dropped by the pipeline, by reason",
		},
		[]string{"reason"},
	)

	// IngestedCandles counts bars written to ClickHouse by the topic consumer.
	IngestedCandles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverscan",
			Subsystem: "ingest",
			Name:      "candles_total",
			Help:      "Bars consumed from the candle topic into ClickHouse",
		},
		[]string{"interval"},
	)

	// IngestLatency tracks bar event time to ingest time.
	IngestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "silverscan",
			Subsystem: "ingest",
			Name:      "e2e_seconds",
			Help:      "Delay between a bar's bucket time and its ingest",
			Buckets:   []float64{1, 5, 15, 60, 120, 300, 900, 3600},
		},
	)
)

// Register installs the pipeline and ingest collectors exactly once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineBars, PipelineFlushLatency, PipelineDrops,
			IngestedCandles, IngestLatency,
		)
	})
}
