package indicator

import "math"

// MACDResult holds the three MACD lines, each the length of the input.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes MACD(12, 26, 9) over closing prices.
func MACD(closes []float64) MACDResult {
	return MACDWithPeriods(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
}

// MACDWithPeriods computes the MACD line (fast EMA - slow EMA), its signal
// EMA and the histogram (MACD - signal).
//
// Unlike the other indicators, MACD uses 0 rather than NaN for positions it
// cannot compute, so every output value is finite. A series shorter than
// slow, or one without any valid sample, yields three all-zero lines.
// Gaps in closes are filled before the EMAs run.
func MACDWithPeriods(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:      make([]float64, n),
		Signal:    make([]float64, n),
		Histogram: make([]float64, n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow || !HasUsableData(closes) {
		return res
	}

	filled := FillGaps(closes)
	fastEMA := EMA(filled, fast)
	slowEMA := EMA(filled, slow)

	// Before slow-1 the two EMAs are not both seeded; those positions stay 0.
	for i := slow - 1; i < n; i++ {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			if i > 0 {
				res.MACD[i] = res.MACD[i-1]
			}
			continue
		}
		res.MACD[i] = fastEMA[i] - slowEMA[i]
	}
	zeroNaN(res.MACD)

	copy(res.Signal, EMA(res.MACD, signal))
	zeroNaN(res.Signal)

	for i := range res.Histogram {
		res.Histogram[i] = res.MACD[i] - res.Signal[i]
	}
	return res
}

// zeroNaN replaces NaN entries with 0 in place.
func zeroNaN(series []float64) {
	for i, v := range series {
		if math.IsNaN(v) {
			series[i] = 0
		}
	}
}
