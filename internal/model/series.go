package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// Line is one named output array of an indicator, aligned index-for-index
// with the candle series it was computed from.
type Line struct {
	Name   string    `json:"name"`
	Values []float64 `json:"-"`
}

// IndicatorSeries holds every output line of one configured indicator.
type IndicatorSeries struct {
	Name  string `json:"name"` // e.g. "SMA_20", "MACD_12_26_9"
	Type  string `json:"type"` // e.g. "SMA", "MACD"
	Lines []Line `json:"lines"`
}

// Line returns the named output line, or nil if the series has none.
func (s *IndicatorSeries) Line(name string) []float64 {
	for _, l := range s.Lines {
		if l.Name == name {
			return l.Values
		}
	}
	return nil
}

// Defined counts the finite values across all lines.
func (s *IndicatorSeries) Defined() int {
	n := 0
	for _, l := range s.Lines {
		for _, v := range l.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				n++
			}
		}
	}
	return n
}

// NullDecimals converts a float series for JSON output: NaN becomes null and
// finite values are rounded to places decimal digits.
func NullDecimals(values []float64, places int32) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = decimal.NullDecimal{Decimal: decimal.NewFromFloat(v).Round(places), Valid: true}
	}
	return out
}
