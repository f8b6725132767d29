package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"ta-engine/internal/model"
)

// candleRow is the scan target for the candles table. NULL prices are
// invalid samples.
type candleRow struct {
	Exchange string          `db:"exchange"`
	Symbol   string          `db:"symbol"`
	TF       int             `db:"tf"`
	TS       int64           `db:"ts"`
	Open     sql.NullFloat64 `db:"open"`
	High     sql.NullFloat64 `db:"high"`
	Low      sql.NullFloat64 `db:"low"`
	Close    sql.NullFloat64 `db:"close"`
	Volume   sql.NullFloat64 `db:"volume"`
}

func (r candleRow) candle() model.Candle {
	return model.Candle{
		Exchange: r.Exchange,
		Symbol:   r.Symbol,
		TF:       r.TF,
		TS:       time.Unix(r.TS, 0).UTC(),
		Open:     fromNull(r.Open),
		High:     fromNull(r.High),
		Low:      fromNull(r.Low),
		Close:    fromNull(r.Close),
		Volume:   fromNull(r.Volume),
	}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// ReadCandles returns the candles matching q, ordered by timestamp ascending.
// With q.Limit > 0 the most recent q.Limit candles are returned.
func (s *Store) ReadCandles(ctx context.Context, q model.CandleQuery) ([]model.Candle, error) {
	var (
		where = []string{"exchange = ?", "symbol = ?", "tf = ?"}
		args  = []any{q.Exchange, q.Symbol, q.TF}
	)
	if !q.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.From.Unix())
	}
	if !q.To.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, q.To.Unix())
	}

	query := `SELECT exchange, symbol, tf, ts, open, high, low, close, volume
		FROM candles
		WHERE ` + strings.Join(where, " AND ")
	if q.Limit > 0 {
		query += " ORDER BY ts DESC LIMIT ?"
		args = append(args, q.Limit)
	} else {
		query += " ORDER BY ts ASC"
	}

	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query candles %s:%s tf=%d: %w", q.Exchange, q.Symbol, q.TF, err)
	}

	candles := make([]model.Candle, len(rows))
	for i, r := range rows {
		candles[i] = r.candle()
	}
	if q.Limit > 0 {
		// DESC → ASC
		for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
			candles[i], candles[j] = candles[j], candles[i]
		}
	}
	return candles, nil
}
