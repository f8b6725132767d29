package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// The first value sits at index period and is seeded from the first period
// price changes: gains and losses are summed separately over changes whose
// two endpoints are both valid, then divided by period. After that,
//
//	avgGain = (avgGain*(period-1) + gain) / period
//	avgLoss = (avgLoss*(period-1) + loss) / period
//
// using the gap-filled series. When either endpoint of the current change is
// invalid in the input, the previous RSI is repeated and the averages are not
// updated. A zero average loss gives 100, so every defined value lies in
// [0, 100].
//
// Fewer than period+1 valid samples yields an all-NaN result.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if period <= 0 || n < period+1 || countValid(closes) < period+1 {
		return out
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		if !IsValid(closes[i]) || !IsValid(closes[i-1]) {
			continue
		}
		gain, loss := splitChange(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= p
	avgLoss /= p
	out[period] = rsiValue(avgGain, avgLoss)

	filled := FillGaps(closes)
	for i := period + 1; i < n; i++ {
		if !IsValid(closes[i]) || !IsValid(closes[i-1]) {
			out[i] = out[i-1]
			continue
		}
		gain, loss := splitChange(filled[i] - filled[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func splitChange(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
