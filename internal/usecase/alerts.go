package usecase

import (
	"fmt"
	"strconv"
	"time"

	"SilverScan/internal/domain/models"
)

const alertConfidence = 0.85

const alertStampLayout = "2006-01-02 15:04:05"

// AlertGenerator renders detector signals into the narrative alert envelopes
// chart frontends consume. Pool alerts invert their side: resting buy-side
// liquidity above equal highs is a draw for a sweep-and-reverse, so it reads
// as a sell alert. All timestamps render in the exchange zone.
type AlertGenerator struct {
	zone *time.Location
}

func NewAlertGenerator(zone *time.Location) *AlertGenerator {
	if zone == nil {
		zone = time.UTC
	}
	return &AlertGenerator{zone: zone}
}

// Generate builds one alert per signal in signal order. StopLoss/TakeProfit
// are copied from the suggestion onto gap alerts whose side matches the
// action and whose bounds equal the entry zone; every other alert leaves
// them nil.
func (g *AlertGenerator) Generate(signals []models.Signal, sg models.Suggestion) []models.Alert {
	alerts := make([]models.Alert, 0, len(signals))
	for i, s := range signals {
		text, ok := g.describe(s)
		if !ok {
			continue
		}
		stamp := s.Time().In(g.zone).Format(alertStampLayout)
		a := models.Alert{
			ID:         strconv.Itoa(i + 1),
			Timestamp:  stamp,
			Message:    fmt.Sprintf("[%s] %s", stamp, text),
			Type:       alertType(s),
			Confidence: alertConfidence,
		}
		if a.Type == models.AlertNeutral {
			a.NeutralReason = neutralReason(s.Kind)
		}
		if s.Kind == models.KindLiquidityPool && s.Pool != nil {
			a.Times = []string{
				s.Pool.Times[0].In(g.zone).Format(alertStampLayout),
				s.Pool.Times[1].In(g.zone).Format(alertStampLayout),
			}
		}
		if gapProducedSuggestion(s, sg) && string(a.Type) == string(sg.Action) {
			a.StopLoss = sg.StopLoss
			a.TakeProfit = sg.TakeProfit
		}
		alerts = append(alerts, a)
	}
	return alerts
}

// gapProducedSuggestion reports whether this gap signal is the one the
// decision agent built its entry zone from.
func gapProducedSuggestion(s models.Signal, sg models.Suggestion) bool {
	if !sg.Actionable() || sg.EntryZone == nil {
		return false
	}
	if s.Kind != models.KindFairValueGap || s.Gap == nil {
		return false
	}
	return s.Gap.GapLow == sg.EntryZone.Low() && s.Gap.GapHigh == sg.EntryZone.High()
}

func alertType(s models.Signal) models.AlertType {
	switch s.Kind {
	case models.KindLiquidityPool:
		if s.Pool == nil {
			break
		}
		switch s.Pool.Side {
		case models.PoolBuy:
			return models.AlertSell
		case models.PoolSell:
			return models.AlertBuy
		}
	case models.KindFairValueGap:
		if s.Gap == nil {
			break
		}
		switch s.Gap.Side {
		case models.Bullish:
			return models.AlertBuy
		case models.Bearish:
			return models.AlertSell
		}
	case models.KindOrderBlock:
		if s.Block == nil {
			break
		}
		switch s.Block.Side {
		case models.Bullish:
			return models.AlertBuy
		case models.Bearish:
			return models.AlertSell
		}
	}
	return models.AlertNeutral
}

func neutralReason(kind models.SignalKind) string {
	switch kind {
	case models.KindLiquidityPool:
		return "This alert is neutral because it only indicates the presence of a liquidity pool and does not by itself provide a directional trade signal. Look for confirmation from other patterns before acting."
	case models.KindFairValueGap, models.KindOrderBlock:
		return "This alert is neutral because the detected pattern does not meet all criteria for a high-probability setup. Monitor the market for further developments."
	default:
		return "No actionable trade direction detected for this pattern."
	}
}

// describe renders the narrative for one signal. Signals missing their
// payload are skipped rather than rendered empty.
func (g *AlertGenerator) describe(s models.Signal) (string, bool) {
	switch s.Kind {
	case models.KindLiquidityPool:
		if s.Pool == nil {
			return "", false
		}
		return g.describePool(*s.Pool), true
	case models.KindFairValueGap:
		if s.Gap == nil {
			return "", false
		}
		return g.describeGap(*s.Gap), true
	case models.KindOrderBlock:
		if s.Block == nil {
			return "", false
		}
		return g.describeBlock(*s.Block), true
	}
	return "", false
}

func (g *AlertGenerator) describePool(p models.LiquidityPool) string {
	t1 := p.Times[0].In(g.zone).Format(alertStampLayout)
	t2 := p.Times[1].In(g.zone).Format(alertStampLayout)
	if p.Side == models.PoolBuy {
		return fmt.Sprintf(
			"Equal highs detected around **%.4f** (formed on %s and %s). "+
				"This indicates a pool of **buy-side liquidity** resting above that level. "+
				"Watch for a potential **liquidity sweep** above %.4f followed by a sharp drop, "+
				"as smart money grabs those stops before reversing the price down.",
			p.Price, t1, t2, p.Price)
	}
	return fmt.Sprintf(
		"Equal lows detected around **%.4f** (formed on %s and %s). "+
			"This signifies **sell-side liquidity** below that level. "+
			"A sweep below these lows that triggers resting stops is often followed by "+
			"a quick reversal upward, indicating an inducement trap and a potential bullish move.",
		p.Price, t1, t2)
}

func (g *AlertGenerator) describeGap(fvg models.FairValueGap) string {
	formed := fvg.Time.In(g.zone).Format(alertStampLayout)
	if fvg.Side == models.Bullish {
		return fmt.Sprintf(
			"**Bullish Fair Value Gap** spotted from ~%.4f up to %.4f (gap formed around %s). "+
				"This range is an **imbalance** where buying overwhelmed selling, leaving a void. "+
				"Watch for price to dip into this gap and then reject higher, "+
				"which could offer a bullish entry if the gap acts as support.",
			fvg.GapLow, fvg.GapHigh, formed)
	}
	return fmt.Sprintf(
		"**Bearish Fair Value Gap** spotted from ~%.4f down to %.4f (gap formed around %s). "+
			"This zone is an **inefficiency** left by aggressive selling. "+
			"Price often retraces up into such gaps before continuing lower; "+
			"be prepared for a bearish reversal if price rebounds from this area.",
		fvg.GapHigh, fvg.GapLow, formed)
}

func (g *AlertGenerator) describeBlock(b models.OrderBlock) string {
	formed := b.Time.In(g.zone).Format(alertStampLayout)
	if b.Side == models.Bearish {
		return fmt.Sprintf(
			"**Bearish Order Block** identified (from %.4f to %.4f, formed on %s). "+
				"This was the last bullish candle before a strong drop, "+
				"indicating a **supply zone** where institutions likely sold. "+
				"Watch for bearish signals if price revisits this zone, "+
				"as it could be a high-probability short entry area.",
			b.ZoneLow, b.ZoneHigh, formed)
	}
	return fmt.Sprintf(
		"**Bullish Order Block** identified (from %.4f to %.4f, formed on %s). "+
			"This was the last bearish candle before a strong rally, "+
			"marking a **demand zone** where smart money bought. "+
			"Look for bullish confirmation if price revisits this zone, "+
			"as it could offer a reliable long entry point.",
		b.ZoneLow, b.ZoneHigh, formed)
}
