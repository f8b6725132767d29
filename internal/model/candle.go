package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Candle is one OHLCV bucket of a price series.
// Missing or invalid prices are carried as NaN; the JSON form uses null for them.
type Candle struct {
	Exchange string    `json:"exchange,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
	TF       int       `json:"tf,omitempty"` // timeframe in seconds
	TS       time.Time `json:"ts"`           // bucket start time (UTC)
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Key returns "exchange:symbol".
func (c *Candle) Key() string {
	return c.Exchange + ":" + c.Symbol
}

// StreamKey returns the Redis stream key: "candle:{TF}s:{exchange}:{symbol}".
func (c *Candle) StreamKey() string {
	return StreamKey(c.Exchange, c.Symbol, c.TF)
}

// StreamKey builds the Redis stream key for an instrument and timeframe.
func StreamKey(exchange, symbol string, tf int) string {
	return "candle:" + strconv.Itoa(tf) + "s:" + exchange + ":" + symbol
}

type candleJSON struct {
	Exchange string    `json:"exchange,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
	TF       int       `json:"tf,omitempty"`
	TS       time.Time `json:"ts"`
	Open     *float64  `json:"open"`
	High     *float64  `json:"high"`
	Low      *float64  `json:"low"`
	Close    *float64  `json:"close"`
	Volume   *float64  `json:"volume"`
}

// MarshalJSON encodes NaN and infinite prices as null.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		Exchange: c.Exchange,
		Symbol:   c.Symbol,
		TF:       c.TF,
		TS:       c.TS,
		Open:     nullable(c.Open),
		High:     nullable(c.High),
		Low:      nullable(c.Low),
		Close:    nullable(c.Close),
		Volume:   nullable(c.Volume),
	})
}

// UnmarshalJSON decodes null or absent prices as NaN.
func (c *Candle) UnmarshalJSON(data []byte) error {
	var aux candleJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Candle{
		Exchange: aux.Exchange,
		Symbol:   aux.Symbol,
		TF:       aux.TF,
		TS:       aux.TS,
		Open:     orNaN(aux.Open),
		High:     orNaN(aux.High),
		Low:      orNaN(aux.Low),
		Close:    orNaN(aux.Close),
		Volume:   orNaN(aux.Volume),
	}
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
