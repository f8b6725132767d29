package redis

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"ta-engine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

var t0 = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func candleAt(minute int, close float64) model.Candle {
	return model.Candle{
		Exchange: "NSE", Symbol: "RELIANCE", TF: 60,
		TS:    t0.Add(time.Duration(minute) * time.Minute),
		Close: close, Open: close, High: close, Low: close,
	}
}

func message(t *testing.T, id string, c model.Candle) goredis.XMessage {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return goredis.XMessage{ID: id, Values: map[string]interface{}{"data": string(data)}}
}

func TestDecodeMessages_SkipsMalformed(t *testing.T) {
	nanClose := candleAt(1, math.NaN())
	msgs := []goredis.XMessage{
		message(t, "1-0", candleAt(0, 10)),
		{ID: "2-0", Values: map[string]interface{}{"data": "{not json"}},
		{ID: "3-0", Values: map[string]interface{}{"other": "x"}},
		message(t, "4-0", nanClose),
	}
	got := decodeMessages("candle:60s:NSE:RELIANCE", msgs)
	if len(got) != 2 {
		t.Fatalf("got %d candles, want 2", len(got))
	}
	if got[0].Close != 10 || !math.IsNaN(got[1].Close) {
		t.Errorf("closes = %v, %v", got[0].Close, got[1].Close)
	}
}

func TestSelectCandles_SortsDedupsAndLimits(t *testing.T) {
	in := []model.Candle{
		candleAt(3, 13),
		candleAt(1, 11),
		candleAt(2, 12),
		candleAt(1, 99), // re-imported, wins
		candleAt(0, 10),
	}
	got := selectCandles(in, model.CandleQuery{})
	want := []float64{10, 99, 12, 13}
	if len(got) != len(want) {
		t.Fatalf("got %d candles, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Close != w {
			t.Errorf("[%d] close=%v, want %v", i, got[i].Close, w)
		}
	}

	limited := selectCandles([]model.Candle{candleAt(0, 1), candleAt(1, 2), candleAt(2, 3)}, model.CandleQuery{Limit: 2})
	if len(limited) != 2 || limited[0].Close != 2 || limited[1].Close != 3 {
		t.Errorf("limit: %+v", limited)
	}
}

func TestSelectCandles_TimeRange(t *testing.T) {
	var in []model.Candle
	for i := 0; i < 6; i++ {
		in = append(in, candleAt(i, float64(i)))
	}
	got := selectCandles(in, model.CandleQuery{
		From: t0.Add(2 * time.Minute),
		To:   t0.Add(4 * time.Minute),
	})
	if len(got) != 3 || got[0].Close != 2 || got[2].Close != 4 {
		t.Errorf("range: %+v", got)
	}
}
