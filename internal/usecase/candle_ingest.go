package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	svcmetrics "SilverScan/internal/service/metrics"
	pkgkafka "SilverScan/pkg/kafka"
)

// KafkaCandlesHandler consumes closed bars from the candle topic and writes
// them to ClickHouse. The candle tables are ReplacingMergeTree keyed
// (symbol, bucket), so replaying the topic after a warehouse outage converges
// to one row per bar.
type KafkaCandlesHandler struct {
	topic   string
	sink    domrepo.CandleSink
	metrics domrepo.Metrics
}

func NewKafkaCandlesHandler(topic string, sink domrepo.CandleSink, metrics domrepo.Metrics) *KafkaCandlesHandler {
	svcmetrics.Register()
	return &KafkaCandlesHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, interval, t, o, h, l, c, v}
func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol   string  `json:"symbol"`
		Interval string  `json:"interval"`
		T        int64   `json:"t"`
		O        float64 `json:"o"`
		H        float64 `json:"h"`
		L        float64 `json:"l"`
		C        float64 `json:"c"`
		V        float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T /= 1000
	}

	iv := domrepo.NormalizeInterval(m.Interval)
	candle := models.Candle{
		Time:  time.Unix(m.T, 0).UTC(),
		Open:  m.O,
		High:  m.H,
		Low:   m.L,
		Close: m.C,
	}
	if m.V > 0 {
		candle.Volume = models.Float64Ptr(m.V)
	}
	// malformed bars go to the DLQ, retrying cannot repair them
	if err := candle.Validate(); err != nil {
		h.recordError("consumer_candle")
		return err
	}

	if err := h.sink.StoreBatch(ctx, m.Symbol, iv, []models.Candle{candle}); err != nil {
		h.recordError("consumer_store")
		return err
	}

	svcmetrics.IngestedCandles.WithLabelValues(string(iv)).Inc()
	svcmetrics.IngestLatency.Observe(time.Since(candle.Time).Seconds())
	return nil
}

func (h *KafkaCandlesHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
