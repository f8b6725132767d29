package indicator

// EMA returns the exponential moving average of series over period.
//
// The smoothing factor is k = 2/(period+1). The first value, at index
// period-1, is an SMA seed: the mean of the valid samples among the first
// period inputs. Later values follow EMA = x*k + prev*(1-k). An invalid input
// holds the previous EMA instead of propagating NaN.
//
// If the seed window has no valid sample, or the series is shorter than
// period, the whole result is NaN.
func EMA(series []float64, period int) []float64 {
	n := len(series)
	out := nanSeries(n)
	if period <= 0 || n < period {
		return out
	}

	prev, count := windowMean(series, 0, period-1)
	if count == 0 {
		return out
	}

	k := 2.0 / float64(period+1)
	out[period-1] = prev

	for i := period; i < n; i++ {
		if x := series[i]; IsValid(x) {
			prev = x*k + prev*(1-k)
		}
		out[i] = prev
	}
	return out
}
