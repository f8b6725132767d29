package indicator

import (
	"fmt"

	"ta-engine/internal/model"
)

// Output line names produced by Compute.
const (
	LineValue     = "value"
	LineMACD      = "macd"
	LineSignal    = "signal"
	LineHistogram = "histogram"
	LineK         = "k"
	LineD         = "d"
	LineJ         = "j"
	LineUpper     = "upper"
	LineMiddle    = "middle"
	LineLower     = "lower"
)

// Inputs are the price channels indicators read, extracted once per
// candle series and shared read-only between indicators.
type Inputs struct {
	Closes []float64
	Highs  []float64
	Lows   []float64
}

// NewInputs extracts the channels of candles.
func NewInputs(candles []model.Candle) Inputs {
	return Inputs{Closes: Closes(candles), Highs: Highs(candles), Lows: Lows(candles)}
}

// Compute runs every configured indicator over one candle series.
//
// Configs are normalized before use. Each returned series has lines of
// exactly len(candles) values, positionally aligned with candles; pair them
// with the candle timestamps to plot. Compute has no side effects.
func Compute(candles []model.Candle, configs []Config) ([]model.IndicatorSeries, error) {
	normalized := make([]Config, len(configs))
	for i, c := range configs {
		normalized[i] = c.Normalize()
	}
	if err := ValidateConfigs(normalized); err != nil {
		return nil, err
	}

	in := NewInputs(candles)
	out := make([]model.IndicatorSeries, 0, len(normalized))
	for _, cfg := range normalized {
		s, err := Series(in, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Series computes one indicator from shared inputs. cfg must already be
// normalized and valid; Compute does both.
func Series(in Inputs, cfg Config) (model.IndicatorSeries, error) {
	s := model.IndicatorSeries{Name: cfg.Name(), Type: cfg.Type}
	switch cfg.Type {
	case TypeSMA:
		s.Lines = []model.Line{{Name: LineValue, Values: SMA(in.Closes, cfg.Period)}}
	case TypeEMA:
		s.Lines = []model.Line{{Name: LineValue, Values: EMA(in.Closes, cfg.Period)}}
	case TypeRSI:
		s.Lines = []model.Line{{Name: LineValue, Values: RSI(in.Closes, cfg.Period)}}
	case TypeMACD:
		r := MACDWithPeriods(in.Closes, cfg.Period, cfg.SlowPeriod, cfg.SignalPeriod)
		s.Lines = []model.Line{
			{Name: LineMACD, Values: r.MACD},
			{Name: LineSignal, Values: r.Signal},
			{Name: LineHistogram, Values: r.Histogram},
		}
	case TypeKDJ:
		r := KDJ(in.Highs, in.Lows, in.Closes, cfg.Period)
		s.Lines = []model.Line{
			{Name: LineK, Values: r.K},
			{Name: LineD, Values: r.D},
			{Name: LineJ, Values: r.J},
		}
	case TypeBollinger:
		r := Bollinger(in.Closes, cfg.Period, cfg.Multiplier)
		s.Lines = []model.Line{
			{Name: LineUpper, Values: r.Upper},
			{Name: LineMiddle, Values: r.Middle},
			{Name: LineLower, Values: r.Lower},
		}
	default:
		return model.IndicatorSeries{}, fmt.Errorf("unknown indicator type %q", cfg.Type)
	}
	return s, nil
}
