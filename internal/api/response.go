package api

import (
	"ta-engine/internal/analysis"
	"ta-engine/internal/model"

	"github.com/shopspring/decimal"
)

func init() {
	// Emit indicator values as JSON numbers rather than strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxPrecision bounds the number of decimal places a client may request.
const MaxPrecision = 12

// IndicatorResponse is the JSON body of the indicator endpoints. Every line
// has one entry per element of Times; undefined values are null.
type IndicatorResponse struct {
	Exchange string           `json:"exchange,omitempty"`
	Symbol   string           `json:"symbol,omitempty"`
	TF       int              `json:"tf,omitempty"`
	Times    []int64          `json:"times"` // unix seconds
	Series   []SeriesResponse `json:"series"`
}

// SeriesResponse is one indicator's output lines keyed by line name.
type SeriesResponse struct {
	Name  string                           `json:"name"`
	Type  string                           `json:"type"`
	Lines map[string][]decimal.NullDecimal `json:"lines"`
}

// NewIndicatorResponse renders res with values rounded to precision places.
func NewIndicatorResponse(res *analysis.Result, precision int) IndicatorResponse {
	places := int32(min(max(precision, 0), MaxPrecision))

	resp := IndicatorResponse{
		Exchange: res.Exchange,
		Symbol:   res.Symbol,
		TF:       res.TF,
		Times:    make([]int64, len(res.Times)),
		Series:   make([]SeriesResponse, len(res.Series)),
	}
	for i, ts := range res.Times {
		resp.Times[i] = ts.Unix()
	}
	for i, s := range res.Series {
		lines := make(map[string][]decimal.NullDecimal, len(s.Lines))
		for _, l := range s.Lines {
			lines[l.Name] = model.NullDecimals(l.Values, places)
		}
		resp.Series[i] = SeriesResponse{Name: s.Name, Type: s.Type, Lines: lines}
	}
	return resp
}
