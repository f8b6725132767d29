// Package indicator provides batch technical indicator calculations over
// price series.
//
// Every function takes whole input arrays and returns new arrays of the same
// length, aligned index-for-index with the input. Inputs are never mutated and
// no function keeps state between calls, so all of them are safe for
// concurrent use.
//
// Two sentinel families are used for positions that cannot be computed:
//
//   - NaN (SMA, EMA, RSI, KDJ, Bollinger): not enough history yet, or the
//     value is degenerate at that point. Callers should skip these points.
//   - Neutral values: MACD returns 0 where it cannot compute, so histogram
//     sign checks stay well defined; KDJ seeds its recursion with K = D = 50.
//
// A non-positive period is a caller contract violation. Functions do not
// panic on it; they return an all-NaN series (all-zero for MACD).
package indicator

import "math"

// Default periods used when a Config leaves them unset.
const (
	DefaultRSIPeriod        = 14
	DefaultKDJPeriod        = 9
	DefaultBollingerPeriod  = 20
	DefaultBollingerStdDevs = 2.0
	DefaultMACDFast         = 12
	DefaultMACDSlow         = 26
	DefaultMACDSignal       = 9
)

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
