package yahoo

import (
	"time"

	"SilverScan/internal/domain/models"
)

// chartResponse mirrors the v8 finance chart payload: parallel arrays of
// timestamps and quote fields, with nulls where the exchange printed no bar.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Timezone string `json:"timezone"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// toCandles flattens one chart result into candles. Bars with any missing
// OHLC field are dropped; zero or missing volume is normalized to absent so
// downstream volume filters only fire on real readings. Bars violating the
// OHLC invariant are dropped and counted for the caller to log.
func toCandles(res chartResult) (candles []models.Candle, dropped int) {
	if len(res.Indicators.Quote) == 0 {
		return nil, 0
	}
	q := res.Indicators.Quote[0]
	candles = make([]models.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		c := models.Candle{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil && *q.Volume[i] > 0 {
			c.Volume = models.Float64Ptr(*q.Volume[i])
		}
		if err := c.Validate(); err != nil {
			dropped++
			continue
		}
		candles = append(candles, c)
	}
	return candles, dropped
}
