package usecase

import (
	"context"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	mid "SilverScan/internal/middleware"
)

// StreamCollector pulls live trades off the market stream and feeds the
// candle pipeline.
type StreamCollector struct {
	stream  domrepo.MarketStream
	pipe    *mid.CandlePipeline
	metrics domrepo.Metrics
}

// NewStreamCollector creates a new StreamCollector instance.
func NewStreamCollector(stream domrepo.MarketStream, pipe *mid.CandlePipeline, metrics domrepo.Metrics) *StreamCollector {
	return &StreamCollector{stream: stream, pipe: pipe, metrics: metrics}
}

// IsConnected returns true if the market stream is connected.
func (c *StreamCollector) IsConnected() bool { return c.stream.IsConnected() }

func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	trCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, trCh, errCh)
	return nil
}

func (c *StreamCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			// a read error ends the stream's read loop and closes both
			// channels; the connection and the channels must be rebuilt
			if err != nil && c.metrics != nil {
				c.metrics.RecordError("stream")
			}
			if ctx.Err() != nil {
				return
			}
			_ = c.stream.Reconnect(ctx)
			trCh, errCh = c.stream.Read(ctx)
		case t := <-trCh:
			if t == nil {
				continue
			}
			_ = c.pipe.Process(ctx, t)
		}
	}
}

// Shutdown flushes open bars, stops the pipeline and closes the stream.
// Callers cancel the consume context first so no new trades arrive while the
// tail bars flush.
func (c *StreamCollector) Shutdown(ctx context.Context) error {
	flushErr := c.pipe.FlushOpen(ctx)
	c.pipe.Stop()
	if err := c.stream.Close(); err != nil {
		return err
	}
	return flushErr
}
