package indicator

import "math"

// SMA returns the simple moving average of series over period.
//
// Positions before period-1 are NaN. From period-1 on, each value is the mean
// of the valid samples in the trailing window; invalid samples are left out
// of both the sum and the divisor. A window with no valid sample yields NaN.
func SMA(series []float64, period int) []float64 {
	n := len(series)
	out := nanSeries(n)
	if period <= 0 {
		return out
	}

	for i := period - 1; i < n; i++ {
		if mean, count := windowMean(series, i-period+1, i); count > 0 {
			out[i] = mean
		}
	}
	return out
}

// windowMean averages the valid samples in series[from..to], inclusive.
//
// Samples are accumulated as offsets from the first valid one, so a window
// of identical values yields exactly that value.
func windowMean(series []float64, from, to int) (mean float64, count int) {
	base := math.NaN()
	var sum float64
	for j := from; j <= to; j++ {
		x := series[j]
		if !IsValid(x) {
			continue
		}
		if count == 0 {
			base = x
		}
		sum += x - base
		count++
	}
	if count == 0 {
		return math.NaN(), 0
	}
	return base + sum/float64(count), count
}

// windowStdDev returns the population standard deviation of the valid
// samples in series[from..to] around mean, and how many samples it used.
func windowStdDev(series []float64, from, to int, mean float64) (float64, int) {
	var sq float64
	count := 0
	for j := from; j <= to; j++ {
		if IsValid(series[j]) {
			d := series[j] - mean
			sq += d * d
			count++
		}
	}
	if count == 0 {
		return math.NaN(), 0
	}
	return math.Sqrt(sq / float64(count)), count
}
