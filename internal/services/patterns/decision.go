package patterns

import (
	"fmt"
	"math"
	"strings"

	"SilverScan/internal/domain/models"
	domsvc "SilverScan/internal/domain/service"
)

// Agent is the rule table turning one signal set into one suggestion.
// Rules are evaluated in order and the first match wins:
//
//  1. buy-side pool + bearish gap -> short inside the last bearish gap
//  2. sell-side pool + bullish gap -> long inside the last bullish gap
//  3. otherwise no action
//
// "Last" means last in detector emission order, never re-sorted by time.
// The agent is pure: no side effects, no state across calls, never fails.
type Agent struct {
	stopBuffer  float64 // fractional offset of the stop beyond the gap edge
	rewardRatio float64 // target distance as a multiple of risk
}

// NewAgent validates the model constants up front.
func NewAgent(stopBuffer, rewardRatio float64) (*Agent, error) {
	if stopBuffer < 0 {
		return nil, fmt.Errorf("decision agent: negative stop buffer %g", stopBuffer)
	}
	if rewardRatio <= 0 {
		return nil, fmt.Errorf("decision agent: reward ratio must be positive, got %g", rewardRatio)
	}
	return &Agent{stopBuffer: stopBuffer, rewardRatio: rewardRatio}, nil
}

// Decide evaluates the rule table over signals.
func (a *Agent) Decide(signals []models.Signal) models.Suggestion {
	var (
		buyPool, sellPool  bool
		lastBull, lastBear *models.FairValueGap
		bullOBs, bearOBs   []models.OrderBlock
	)
	for _, s := range signals {
		switch s.Kind {
		case models.KindLiquidityPool:
			if s.Pool.Side == models.PoolBuy {
				buyPool = true
			} else {
				sellPool = true
			}
		case models.KindFairValueGap:
			if s.Gap.Side == models.Bullish {
				lastBull = s.Gap
			} else {
				lastBear = s.Gap
			}
		case models.KindOrderBlock:
			if s.Block.Side == models.Bullish {
				bullOBs = append(bullOBs, *s.Block)
			} else {
				bearOBs = append(bearOBs, *s.Block)
			}
		}
	}

	switch {
	case buyPool && lastBear != nil:
		return a.short(*lastBear, bearOBs)
	case sellPool && lastBull != nil:
		return a.long(*lastBull, bullOBs)
	}
	return models.Suggestion{Action: models.ActionNone, Rationale: "no actionable setup"}
}

func (a *Agent) short(gap models.FairValueGap, blocks []models.OrderBlock) models.Suggestion {
	zone := models.PriceZone{gap.GapLow, gap.GapHigh}
	entry := zone.Mid()
	stop := gap.GapHigh * (1 + a.stopBuffer)
	target := entry - a.rewardRatio*math.Abs(entry-stop)

	var b strings.Builder
	fmt.Fprintf(&b,
		"Bearish silver bullet: buy-side liquidity resting above equal highs and a bearish fair value gap at %.4f-%.4f. Enter short inside the gap, stop above the gap high, %gR target below.",
		gap.GapLow, gap.GapHigh, a.rewardRatio)
	if len(blocks) > 0 {
		fmt.Fprintf(&b, " Supporting bearish order blocks: %s.", describeBlocks(blocks, 3))
	}

	return models.Suggestion{
		Action:     models.ActionSell,
		EntryZone:  &zone,
		StopLoss:   models.Float64Ptr(stop),
		TakeProfit: models.Float64Ptr(target),
		Rationale:  b.String(),
	}
}

func (a *Agent) long(gap models.FairValueGap, blocks []models.OrderBlock) models.Suggestion {
	zone := models.PriceZone{gap.GapLow, gap.GapHigh}
	entry := zone.Mid()
	stop := gap.GapLow * (1 - a.stopBuffer)
	target := entry + a.rewardRatio*math.Abs(entry-stop)

	var b strings.Builder
	fmt.Fprintf(&b,
		"Bullish silver bullet: sell-side liquidity resting below equal lows and a bullish fair value gap at %.4f-%.4f. Enter long inside the gap, stop below the gap low, %gR target above.",
		gap.GapLow, gap.GapHigh, a.rewardRatio)
	if len(blocks) > 0 {
		fmt.Fprintf(&b, " Supporting bullish order blocks: %s.", describeBlocks(blocks, 3))
	}

	return models.Suggestion{
		Action:     models.ActionBuy,
		EntryZone:  &zone,
		StopLoss:   models.Float64Ptr(stop),
		TakeProfit: models.Float64Ptr(target),
		Rationale:  b.String(),
	}
}

// describeBlocks renders up to limit zones. Blocks arrive in detector
// emission order, which is already strongest-first.
func describeBlocks(blocks []models.OrderBlock, limit int) string {
	if len(blocks) > limit {
		blocks = blocks[:limit]
	}
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		parts = append(parts, fmt.Sprintf("%.4f-%.4f", blk.ZoneLow, blk.ZoneHigh))
	}
	return strings.Join(parts, ", ")
}

var _ domsvc.DecisionAgent = (*Agent)(nil)
