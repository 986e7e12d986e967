package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	svcmetrics "SilverScan/internal/service/metrics"
	"SilverScan/internal/services/features"
	xutil "SilverScan/pkg/util"
)

// CandlePipeline is the middleware between the trade stream and storage.
// It folds validated, throttled trades into one open bar per symbol and
// flushes a bar to ClickHouse and Kafka when a trade crosses the bucket
// boundary or the bucket ages out with no further trades.
type CandlePipeline struct {
	iv      domrepo.Interval
	step    time.Duration
	sink    domrepo.CandleSink
	pub     domrepo.Publisher
	metrics domrepo.Metrics

	maxRPS  int
	bufSize int
	bufCh   chan closedBar
	stopCh  chan struct{}
	started bool
	now     func() time.Time

	mu       sync.Mutex
	builders map[string]*features.BarBuilder
	lastSeen map[string]time.Time // per-symbol last accepted time
}

// closedBar is one sealed bucket queued for flushing.
type closedBar struct {
	symbol string
	bar    models.Candle
}

type PipelineOption func(*CandlePipeline)

// WithMaxRPS sets the max trades per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the closed-bar buffer size when downstream is slow.
func WithBufferSize(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithNow overrides the wall clock used for idle-bucket rotation.
func WithNow(fn func() time.Time) PipelineOption {
	return func(p *CandlePipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// NewCandlePipeline creates a pipeline aggregating at the given interval.
// Only fixed-length intraday intervals can bucket trades.
func NewCandlePipeline(iv domrepo.Interval, sink domrepo.CandleSink, pub domrepo.Publisher, metrics domrepo.Metrics, opts ...PipelineOption) (*CandlePipeline, error) {
	step := iv.Duration()
	if step <= 0 {
		return nil, fmt.Errorf("interval %s cannot bucket trades", iv)
	}
	p := &CandlePipeline{
		iv:       iv,
		step:     step,
		sink:     sink,
		pub:      pub,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per symbol
		bufSize:  1000, // default buffer
		stopCh:   make(chan struct{}),
		now:      time.Now,
		builders: make(map[string]*features.BarBuilder),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan closedBar, p.bufSize)
	svcmetrics.Register()
	return p, nil
}

// Start launches background flushing and idle-bucket rotation.
func (p *CandlePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.rotateIdle(p.now())
			case cb := <-p.bufCh:
				if err := p.flush(ctx, cb); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- cb:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
						svcmetrics.PipelineDrops.WithLabelValues("buffer_drop").Inc()
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background flushing. Open bars are not flushed; call FlushOpen
// first when shutting down gracefully.
func (p *CandlePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and throttles one trade, folds it into the symbol's open
// bar, and queues the previous bar when the trade opens a new bucket.
func (p *CandlePipeline) Process(ctx context.Context, t *models.Trade) error {
	start := p.now()
	if err := validateTrade(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		svcmetrics.PipelineDrops.WithLabelValues("invalid").Inc()
		return err
	}
	if !p.allow(t.Symbol, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		svcmetrics.PipelineDrops.WithLabelValues("throttled").Inc()
		return nil
	}

	bucket := xutil.Bucket(t.Time, p.step)

	p.mu.Lock()
	b, ok := p.builders[t.Symbol]
	switch {
	case !ok:
		p.builders[t.Symbol] = features.NewBarBuilder(t.Symbol, bucket, t)
	case bucket.Equal(b.Bucket()):
		b.Apply(t)
	case bucket.After(b.Bucket()):
		sealed := closedBar{symbol: t.Symbol, bar: b.Bar()}
		p.builders[t.Symbol] = features.NewBarBuilder(t.Symbol, bucket, t)
		p.mu.Unlock()
		p.enqueue(sealed)
		p.metrics.RecordStreamTrade(t.Symbol)
		return nil
	default:
		// trade for an already-sealed bucket
		p.mu.Unlock()
		svcmetrics.PipelineDrops.WithLabelValues("late").Inc()
		return nil
	}
	p.mu.Unlock()
	p.metrics.RecordStreamTrade(t.Symbol)
	return nil
}

// FlushOpen seals and flushes every open bar synchronously, including bars
// already sealed but still queued. Called on shutdown so the tail of each
// stream is not lost; a restart inside the same bucket re-inserts it and
// ReplacingMergeTree keeps the newest row.
func (p *CandlePipeline) FlushOpen(ctx context.Context) error {
	p.mu.Lock()
	open := make([]closedBar, 0, len(p.builders))
	for sym, b := range p.builders {
		open = append(open, closedBar{symbol: sym, bar: b.Bar()})
		delete(p.builders, sym)
	}
	p.mu.Unlock()

drain:
	for {
		select {
		case cb := <-p.bufCh:
			open = append(open, cb)
		default:
			break drain
		}
	}

	var firstErr error
	for _, cb := range open {
		if err := p.flush(ctx, cb); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// rotateIdle seals builders whose bucket has fully elapsed with no new trade.
func (p *CandlePipeline) rotateIdle(now time.Time) {
	p.mu.Lock()
	var sealed []closedBar
	for sym, b := range p.builders {
		if !b.Bucket().Add(p.step).After(now) {
			sealed = append(sealed, closedBar{symbol: sym, bar: b.Bar()})
			delete(p.builders, sym)
		}
	}
	p.mu.Unlock()
	for _, cb := range sealed {
		p.enqueue(cb)
	}
}

func (p *CandlePipeline) enqueue(cb closedBar) {
	select {
	case p.bufCh <- cb:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		svcmetrics.PipelineDrops.WithLabelValues("buffer_full").Inc()
	}
}

// flush writes one sealed bar to the sink, then publishes it. A publish
// failure is recorded but does not requeue: the bar is already stored and a
// requeue would double-write it.
func (p *CandlePipeline) flush(ctx context.Context, cb closedBar) error {
	start := p.now()
	if err := p.sink.StoreBatch(ctx, cb.symbol, p.iv, []models.Candle{cb.bar}); err != nil {
		return fmt.Errorf("pipeline sink: %w", err)
	}
	svcmetrics.PipelineFlushLatency.WithLabelValues("clickhouse").Observe(time.Since(start).Seconds())

	if p.pub != nil {
		pubStart := p.now()
		if err := p.pub.PublishCandle(ctx, cb.symbol, p.iv, cb.bar); err != nil {
			p.metrics.RecordError("pipeline_publish")
		} else {
			svcmetrics.PipelineFlushLatency.WithLabelValues("kafka").Observe(time.Since(pubStart).Seconds())
		}
	}
	svcmetrics.PipelineBars.WithLabelValues(cb.symbol, string(p.iv)).Inc()
	return nil
}

func validateTrade(t *models.Trade) error {
	if t == nil {
		return fmt.Errorf("trade nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Time.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price < 0 || t.Size < 0 {
		return fmt.Errorf("negative price/size")
	}
	return nil
}

func (p *CandlePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[symbol]
	if last.IsZero() {
		p.lastSeen[symbol] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
