package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	pkgch "SilverScan/pkg/clickhouse"
	pkgkafka "SilverScan/pkg/kafka"
)

// ClickHouseCandleSink implements CandleSink for ClickHouse. The ingest
// pipeline may re-flush a bucket after late trades, so the candle tables use
// ReplacingMergeTree keyed on (symbol, bucket).
type ClickHouseCandleSink struct {
	ch *pkgch.Client
	db *sql.DB
}

// NewClickHouseCandleSink creates a ClickHouse candle writer.
func NewClickHouseCandleSink(ch *pkgch.Client) domrepo.CandleSink {
	return &ClickHouseCandleSink{ch: ch, db: ch.DB()}
}

func (s *ClickHouseCandleSink) Init(ctx context.Context) error {
	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS silverscan"}, candleTableDDL()...)
	if err := s.ch.InitSchema(ctx, stmts); err != nil {
		return fmt.Errorf("init candle schema: %w", err)
	}
	return nil
}

func candleTableDDL() []string {
	tables := []string{"candles_1m", "candles_2m", "candles_5m", "candles_15m", "candles_1h"}
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS silverscan.%s (symbol String, bucket DateTime, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)", t))
	}
	return stmts
}

func (s *ClickHouseCandleSink) StoreBatch(ctx context.Context, symbol string, iv domrepo.Interval, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	table, err := tableForInterval(iv)
	if err != nil {
		return err
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range candles[start:end] {
			if c.Time.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, c.Time, c.Open, c.High, c.Low, c.Close, c.Vol())
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, bucket, open, high, low, close, vol) VALUES %s", table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candles: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseCandleSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseCandleSink) Close() error {
	return nil // Pool managed by pkg client
}

// KafkaPublisher implements Publisher for Kafka. Messages are keyed by symbol
// so one symbol's stream lands on one partition in order.
type KafkaPublisher struct {
	producer         *pkgkafka.Producer
	candlesTopic     string
	alertsTopic      string
	suggestionsTopic string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, candlesTopic, alertsTopic, suggestionsTopic string) domrepo.Publisher {
	return &KafkaPublisher{
		producer:         producer,
		candlesTopic:     candlesTopic,
		alertsTopic:      alertsTopic,
		suggestionsTopic: suggestionsTopic,
	}
}

func (p *KafkaPublisher) PublishCandle(ctx context.Context, symbol string, iv domrepo.Interval, c models.Candle) error {
	return p.producer.Publish(ctx, p.candlesTopic, []byte(symbol), map[string]interface{}{
		"symbol":   symbol,
		"interval": string(iv),
		"t":        c.Time.Unix(),
		"o":        c.Open,
		"h":        c.High,
		"l":        c.Low,
		"c":        c.Close,
		"v":        c.Vol(),
	})
}

func (p *KafkaPublisher) PublishAlerts(ctx context.Context, symbol string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		msgs[i] = pkgkafka.Message{
			Key: []byte(symbol),
			Value: map[string]interface{}{
				"symbol": symbol,
				"alert":  a,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.alertsTopic, msgs)
}

func (p *KafkaPublisher) PublishSuggestion(ctx context.Context, symbol string, sg models.Suggestion) error {
	return p.producer.Publish(ctx, p.suggestionsTopic, []byte(symbol), map[string]interface{}{
		"symbol":     symbol,
		"suggestion": sg,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
