package models

// Action is the directional call of a suggestion.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = "none"
)

// PriceZone is an inclusive (low, high) price range, serialized as [low, high].
type PriceZone [2]float64

func (z PriceZone) Low() float64  { return z[0] }
func (z PriceZone) High() float64 { return z[1] }
func (z PriceZone) Mid() float64  { return (z[0] + z[1]) / 2 }

// Suggestion is the single actionable output of one decision pass. Entry,
// stop and target are nil when Action is "none". Produced fresh on every
// evaluation; nothing about it persists between calls.
type Suggestion struct {
	Action     Action     `json:"action"`
	EntryZone  *PriceZone `json:"entry_zone"`
	StopLoss   *float64   `json:"stop_loss"`
	TakeProfit *float64   `json:"take_profit"`
	Rationale  string     `json:"rationale"`
}

// Actionable reports whether the suggestion carries a tradable direction.
func (s Suggestion) Actionable() bool { return s.Action == ActionBuy || s.Action == ActionSell }
