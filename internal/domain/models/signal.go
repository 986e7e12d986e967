package models

import "time"

// SignalKind discriminates the Signal union.
type SignalKind string

const (
	KindLiquidityPool SignalKind = "LiquidityPool"
	KindFairValueGap  SignalKind = "FairValueGap"
	KindOrderBlock    SignalKind = "OrderBlock"
)

// PoolSide marks which side of the book the resting liquidity sits on.
// Buy-side liquidity forms above repeated highs, sell-side below repeated lows.
type PoolSide string

const (
	PoolBuy  PoolSide = "buy"
	PoolSell PoolSide = "sell"
)

// Direction is the impulse direction of a gap or block.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// LiquidityPool is a pair of swing extremes printed within tolerance of each
// other with no intervening breach. Each qualifying pair is its own signal;
// a level touched three times yields overlapping pairs on purpose.
type LiquidityPool struct {
	Side  PoolSide
	Price float64
	Times [2]time.Time
}

// FairValueGap is a three-bar price void left by a directional impulse.
// GapLow < GapHigh always; Time anchors on the third bar.
type FairValueGap struct {
	Side    Direction
	GapLow  float64
	GapHigh float64
	Time    time.Time
}

// OrderBlock is the last opposing bar before a three-bar displacement.
// BodySize is the bar body as a fraction of its open; Volume is the source
// bar's volume when the feed reports one.
type OrderBlock struct {
	Side     Direction
	ZoneLow  float64
	ZoneHigh float64
	Time     time.Time
	BodySize float64
	Volume   *float64
}

// Vol returns the block volume, or 0 when absent.
func (b OrderBlock) Vol() float64 {
	if b.Volume == nil {
		return 0
	}
	return *b.Volume
}

// Rank is the ordering key for order blocks: body size weighted by volume.
func (b OrderBlock) Rank() float64 { return b.BodySize * b.Vol() }

// Signal is a tagged union over the detector outputs. Exactly one variant is
// non-nil, selected by Kind; use the constructors to keep that invariant.
type Signal struct {
	Kind  SignalKind
	Pool  *LiquidityPool
	Gap   *FairValueGap
	Block *OrderBlock
}

func PoolSignal(p LiquidityPool) Signal { return Signal{Kind: KindLiquidityPool, Pool: &p} }
func GapSignal(g FairValueGap) Signal { return Signal{Kind: KindFairValueGap, Gap: &g} }
func BlockSignal(b OrderBlock) Signal { return Signal{Kind: KindOrderBlock, Block: &b} }

// Time returns the signal's anchor timestamp: the first formation time for a
// pool, the third-bar time for a gap, the source-bar time for a block.
func (s Signal) Time() time.Time {
	switch s.Kind {
	case KindLiquidityPool:
		if s.Pool != nil {
			return s.Pool.Times[0]
		}
	case KindFairValueGap:
		if s.Gap != nil {
			return s.Gap.Time
		}
	case KindOrderBlock:
		if s.Block != nil {
			return s.Block.Time
		}
	}
	return time.Time{}
}
