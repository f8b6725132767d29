package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"ta-engine/internal/model"
)

const upsertCandle = `
	INSERT INTO candles (exchange, symbol, tf, ts, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (exchange, symbol, tf, ts) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume
`

// WriteCandles upserts candles in a single transaction. A candle that shares
// (exchange, symbol, tf, ts) with a stored one replaces it.
func (s *Store) WriteCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, s.db.Rebind(upsertCandle))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range candles {
		c := &candles[i]
		_, err := stmt.ExecContext(ctx,
			c.Exchange, c.Symbol, c.TF, c.TS.Unix(),
			toNull(c.Open), toNull(c.High), toNull(c.Low), toNull(c.Close), toNull(c.Volume),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s ts=%d: %w", c.Key(), c.TS.Unix(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[sqlstore] committed %d candles in %v", len(candles), time.Since(start))
	return nil
}

func toNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
