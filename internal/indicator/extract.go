package indicator

import "ta-engine/internal/model"

// Closes projects candles onto their close prices.
func Closes(candles []model.Candle) []float64 {
	return extract(candles, func(c *model.Candle) float64 { return c.Close })
}

// Highs projects candles onto their high prices.
func Highs(candles []model.Candle) []float64 {
	return extract(candles, func(c *model.Candle) float64 { return c.High })
}

// Lows projects candles onto their low prices.
func Lows(candles []model.Candle) []float64 {
	return extract(candles, func(c *model.Candle) float64 { return c.Low })
}

// Opens projects candles onto their open prices.
func Opens(candles []model.Candle) []float64 {
	return extract(candles, func(c *model.Candle) float64 { return c.Open })
}

// Volumes projects candles onto their volumes.
func Volumes(candles []model.Candle) []float64 {
	return extract(candles, func(c *model.Candle) float64 { return c.Volume })
}

func extract(candles []model.Candle, field func(*model.Candle) float64) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = field(&candles[i])
	}
	return out
}
