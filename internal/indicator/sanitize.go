package indicator

import "math"

// IsValid reports whether x is a usable sample: not NaN and not infinite.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// HasUsableData reports whether series is non-empty and holds at least one
// valid sample. Indicators use it as a pre-flight guard.
func HasUsableData(series []float64) bool {
	for _, v := range series {
		if IsValid(v) {
			return true
		}
	}
	return false
}

// countValid returns the number of valid samples in series.
func countValid(series []float64) int {
	n := 0
	for _, v := range series {
		if IsValid(v) {
			n++
		}
	}
	return n
}

// FillGaps returns a copy of series with every invalid sample replaced.
//
// A forward pass carries the last valid value over gaps. Leading gaps, which
// have no earlier value, take the nearest later valid value instead. A series
// with no valid sample at all becomes all zeros. The result never contains
// an invalid sample and FillGaps(FillGaps(x)) equals FillGaps(x).
func FillGaps(series []float64) []float64 {
	out := make([]float64, len(series))
	copy(out, series)

	last, seen := 0.0, false
	for i, v := range out {
		if IsValid(v) {
			last, seen = v, true
		} else if seen {
			out[i] = last
		}
	}

	next, found := 0.0, false
	for i := len(out) - 1; i >= 0; i-- {
		if IsValid(out[i]) {
			next, found = out[i], true
			continue
		}
		if found {
			out[i] = next
		} else {
			out[i] = 0
		}
	}
	return out
}
