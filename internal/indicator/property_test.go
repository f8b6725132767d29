package indicator

import (
	"math"
	"math/rand"
	"testing"
)

// randomWalk returns a deterministic price series with roughly one invalid
// sample in gapEvery (0 disables gaps).
func randomWalk(seed int64, n, gapEvery int) ([]float64, []float64, []float64) {
	r := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += r.NormFloat64()
		spread := r.Float64() * 2
		closes[i] = price
		highs[i] = price + spread
		lows[i] = price - spread
		if gapEvery > 0 && r.Intn(gapEvery) == 0 {
			closes[i] = math.NaN()
		}
	}
	return highs, lows, closes
}

func TestOutputLengthMatchesInput(t *testing.T) {
	for n := 0; n <= 60; n += 7 {
		h, l, c := randomWalk(int64(n), n, 5)
		checks := map[string][]float64{
			"SMA":    SMA(c, 5),
			"EMA":    EMA(c, 5),
			"RSI":    RSI(c, 5),
			"MACD":   MACD(c).MACD,
			"signal": MACD(c).Signal,
			"hist":   MACD(c).Histogram,
			"K":      KDJ(h, l, c, 9).K,
			"J":      KDJ(h, l, c, 9).J,
			"upper":  Bollinger(c, 20, 2).Upper,
			"lower":  Bollinger(c, 20, 2).Lower,
			"filled": FillGaps(c),
		}
		for name, got := range checks {
			if len(got) != n {
				t.Errorf("%s: len=%d, want %d", name, len(got), n)
			}
		}
	}
}

func TestRSI_AlwaysInRange(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		_, _, c := randomWalk(seed, 200, 8)
		for i, v := range RSI(c, 14) {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("seed %d: RSI[%d] = %.4f out of [0,100]", seed, i, v)
			}
		}
	}
}

func TestBollinger_BandOrdering(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		_, _, c := randomWalk(seed, 150, 6)
		res := Bollinger(c, 20, 2)
		for i := range c {
			if math.IsNaN(res.Middle[i]) {
				if !math.IsNaN(res.Upper[i]) || !math.IsNaN(res.Lower[i]) {
					t.Fatalf("seed %d: bands defined at %d without a middle", seed, i)
				}
				continue
			}
			if res.Lower[i] > res.Middle[i] || res.Middle[i] > res.Upper[i] {
				t.Fatalf("seed %d: [%d] lower=%.4f middle=%.4f upper=%.4f", seed, i, res.Lower[i], res.Middle[i], res.Upper[i])
			}
		}
	}
}

func TestMACD_AlwaysFinite(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		_, _, c := randomWalk(seed, 120, 4)
		res := MACD(c)
		for i := range c {
			for _, v := range []float64{res.MACD[i], res.Signal[i], res.Histogram[i]} {
				if !IsValid(v) {
					t.Fatalf("seed %d: non-finite MACD value at %d: %v", seed, i, v)
				}
			}
		}
	}
}

func TestEMA_SeedEqualsSMA(t *testing.T) {
	_, _, c := randomWalk(7, 50, 0)
	for _, p := range []int{3, 9, 21} {
		ema, sma := EMA(c, p), SMA(c, p)
		assertClose(t, "EMA seed", ema[p-1], sma[p-1], 1e-9)
	}
}

func TestKDJ_KAndDStayInRange(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		h, l, c := randomWalk(seed, 120, 0)
		res := KDJ(h, l, c, 9)
		for i := range c {
			if math.IsNaN(res.K[i]) {
				continue
			}
			if res.K[i] < 0 || res.K[i] > 100 || res.D[i] < 0 || res.D[i] > 100 {
				t.Fatalf("seed %d: [%d] K=%.4f D=%.4f", seed, i, res.K[i], res.D[i])
			}
		}
	}
}

func TestIndicators_DoNotMutateInput(t *testing.T) {
	h, l, c := randomWalk(3, 80, 5)
	snapshot := func(x []float64) []float64 { return append([]float64(nil), x...) }
	hs, ls, cs := snapshot(h), snapshot(l), snapshot(c)

	SMA(c, 10)
	EMA(c, 10)
	RSI(c, 14)
	MACD(c)
	KDJ(h, l, c, 9)
	Bollinger(c, 20, 2)
	FillGaps(c)

	for name, pair := range map[string][2][]float64{"highs": {h, hs}, "lows": {l, ls}, "closes": {c, cs}} {
		got, want := pair[0], pair[1]
		for i := range want {
			if math.IsNaN(want[i]) != math.IsNaN(got[i]) || (!math.IsNaN(want[i]) && want[i] != got[i]) {
				t.Fatalf("%s[%d] mutated: %v → %v", name, i, want[i], got[i])
			}
		}
	}
}
