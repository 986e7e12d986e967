package patterns

import (
	"context"
	"fmt"
	"math"
	"sort"

	"SilverScan/internal/domain/models"
	domsvc "SilverScan/internal/domain/service"
)

// BlockDetector finds order blocks: the last bar opposing a three-bar
// displacement. A bearish bar swallowed by three bullish bars is a demand
// zone, the mirror a supply zone. Thin bars and thin volume are filtered
// before the direction check, and survivors are ranked strongest first.
type BlockDetector struct {
	minBodyFrac float64
	minVolume   float64
}

// NewBlockDetector rejects negative thresholds up front.
func NewBlockDetector(minBodyFrac, minVolume float64) (*BlockDetector, error) {
	if minBodyFrac < 0 {
		return nil, fmt.Errorf("block detector: negative min body fraction %g", minBodyFrac)
	}
	if minVolume < 0 {
		return nil, fmt.Errorf("block detector: negative min volume %g", minVolume)
	}
	return &BlockDetector{minBodyFrac: minBodyFrac, minVolume: minVolume}, nil
}

// Detect returns blocks sorted non-increasing by body size weighted by
// volume. The sort is stable, so equal-strength blocks keep scan order;
// consumers rely on this ranking. The volume filter only applies to bars
// whose feed reports volume at all.
func (d *BlockDetector) Detect(ctx context.Context, candles []models.Candle) ([]models.OrderBlock, error) {
	var blocks []models.OrderBlock
	for i := 0; i+3 < len(candles); i++ {
		c0 := candles[i]
		if c0.Open == 0 {
			continue
		}
		body := math.Abs(c0.Close-c0.Open) / c0.Open
		if body < d.minBodyFrac {
			continue
		}
		if c0.Volume != nil && *c0.Volume < d.minVolume {
			continue
		}
		c1, c2, c3 := candles[i+1], candles[i+2], candles[i+3]
		switch {
		case c1.Bullish() && c2.Bullish() && c3.Bullish() && c0.Bearish():
			blocks = append(blocks, models.OrderBlock{
				Side:     models.Bullish,
				ZoneLow:  c0.Low,
				ZoneHigh: c0.High,
				Time:     c0.Time,
				BodySize: body,
				Volume:   c0.Volume,
			})
		case c1.Bearish() && c2.Bearish() && c3.Bearish() && c0.Bullish():
			blocks = append(blocks, models.OrderBlock{
				Side:     models.Bearish,
				ZoneLow:  c0.Low,
				ZoneHigh: c0.High,
				Time:     c0.Time,
				BodySize: body,
				Volume:   c0.Volume,
			})
		}
	}
	sort.SliceStable(blocks, func(a, b int) bool { return blocks[a].Rank() > blocks[b].Rank() })
	return blocks, nil
}

var _ domsvc.BlockDetector = (*BlockDetector)(nil)
