package indicator

import "math"

// kdjSeed is the neutral starting value of both K and D.
const kdjSeed = 50.0

// KDJResult holds the K, D and J lines of the stochastic oscillator.
type KDJResult struct {
	K []float64
	D []float64
	J []float64
}

// KDJ computes the stochastic oscillator with its J line over a period window.
//
// The inputs are truncated to the shortest of the three. If that length does
// not exceed period, or any input has no valid sample, every value is NaN.
// Positions before period-1 are NaN. K and D start from 50 and follow
//
//	RSV = (close - lowestLow) / (highestHigh - lowestLow) * 100
//	K   = 2/3*K' + 1/3*RSV
//	D   = 2/3*D' + 1/3*K
//	J   = 3*K - 2*D
//
// where the window extremes come from the gap-filled high and low series.
// When the window has no valid high/low sample, is flat, or the current close
// is invalid, the previous K and D are held. J is an extrapolation and may
// leave [0, 100].
func KDJ(high, low, closes []float64, period int) KDJResult {
	n := min(len(high), len(low), len(closes))
	res := KDJResult{K: nanSeries(n), D: nanSeries(n), J: nanSeries(n)}
	if period <= 0 || n <= period {
		return res
	}
	high, low, closes = high[:n], low[:n], closes[:n]
	if !HasUsableData(high) || !HasUsableData(low) || !HasUsableData(closes) {
		return res
	}

	fHigh := FillGaps(high)
	fLow := FillGaps(low)

	lastK, lastD := kdjSeed, kdjSeed
	for i := period - 1; i < n; i++ {
		from := i - period + 1
		hh, ll := math.Inf(-1), math.Inf(1)
		valid := 0
		for j := from; j <= i; j++ {
			if IsValid(high[j]) || IsValid(low[j]) {
				valid++
			}
			hh = math.Max(hh, fHigh[j])
			ll = math.Min(ll, fLow[j])
		}

		c := closes[i]
		if valid == 0 || hh == ll || !IsValid(c) {
			res.K[i] = lastK
			res.D[i] = lastD
			res.J[i] = 3*lastK - 2*lastD
			continue
		}

		rsv := (c - ll) / (hh - ll) * 100
		k := 2.0/3.0*lastK + 1.0/3.0*rsv
		d := 2.0/3.0*lastD + 1.0/3.0*k
		res.K[i] = k
		res.D[i] = d
		res.J[i] = 3*k - 2*d
		lastK, lastD = k, d
	}
	return res
}
