package models

// Request/response shapes for the market-data HTTP endpoint. Defined in domain
// for consistency and reuse.

// MarketDataRequest binds the /api/market-data query string. Interval is
// checked against the supported set in the usecase so the error text can list
// valid values; unknown symbols fall back to the default index.
type MarketDataRequest struct {
	Interval string `query:"interval" json:"interval" default:"1m" validate:"required"`
	Symbol   string `query:"symbol" json:"symbol" default:"^GSPC" validate:"required"`
}

// CandleJSON is the frontend candle shape. Times are rendered in the exchange
// zone; bars with no reported volume serialize volume as 0.
type CandleJSON struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarketDataResponse is the full payload for one analysis pass over a symbol.
type MarketDataResponse struct {
	Candles    []CandleJSON `json:"candles"`
	Alerts     []Alert      `json:"alerts"`
	Suggestion Suggestion   `json:"suggestion"`
	Symbol     string       `json:"symbol"`
	SymbolName string       `json:"symbol_name"`
}
