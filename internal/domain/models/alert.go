package models

// AlertType is the frontend-facing classification of one alert.
// Pool alerts invert their side: resting buy-side liquidity above equal highs
// is a draw for a sweep-and-reverse, so it reads as a sell alert.
type AlertType string

const (
	AlertBuy     AlertType = "buy"
	AlertSell    AlertType = "sell"
	AlertNeutral AlertType = "neutral"
)

// Alert is the presentation envelope for one detected signal: narrative text
// plus the fields chart frontends key on. StopLoss/TakeProfit are copied from
// the suggestion onto the one gap alert that produced it.
type Alert struct {
	ID            string    `json:"id"`
	Timestamp     string    `json:"timestamp"`
	Message       string    `json:"message"`
	Type          AlertType `json:"type"`
	Confidence    float64   `json:"confidence"`
	StopLoss      *float64  `json:"stop_loss"`
	TakeProfit    *float64  `json:"take_profit"`
	NeutralReason string    `json:"neutral_reason,omitempty"`
	Times         []string  `json:"times,omitempty"`
}
