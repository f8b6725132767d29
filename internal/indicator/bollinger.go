package indicator

import "math"

// BollingerResult holds the three Bollinger bands.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands: an SMA middle band with upper and lower
// bands multiplier population standard deviations away.
//
// The deviation is taken over the valid samples of the trailing window. Bands
// are NaN wherever the middle band is NaN. Where defined,
// Lower <= Middle <= Upper for a non-negative multiplier.
func Bollinger(closes []float64, period int, multiplier float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{
		Upper:  nanSeries(n),
		Middle: SMA(closes, period),
		Lower:  nanSeries(n),
	}
	if period <= 0 {
		return res
	}

	for i := period - 1; i < n; i++ {
		mid := res.Middle[i]
		if math.IsNaN(mid) {
			continue
		}
		sd, count := windowStdDev(closes, i-period+1, i, mid)
		if count == 0 {
			continue
		}
		res.Upper[i] = mid + multiplier*sd
		res.Lower[i] = mid - multiplier*sd
	}
	return res
}
