package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the analysis service from concrete candle stores
// (SQLite, PostgreSQL, Redis Streams).

// CandleQuery selects candles of one instrument and timeframe.
// Zero From/To leave that side of the range open; Limit > 0 keeps only the
// most recent Limit candles.
type CandleQuery struct {
	Exchange string
	Symbol   string
	TF       int
	From     time.Time
	To       time.Time
	Limit    int
}

// CandleReader reads candles in chronological order.
type CandleReader interface {
	// ReadCandles returns the candles matching q, oldest first.
	ReadCandles(ctx context.Context, q CandleQuery) ([]Candle, error)

	// Close releases underlying resources.
	Close() error
}

// CandleWriter appends candles to a store. Used by the import path.
type CandleWriter interface {
	WriteCandles(ctx context.Context, candles []Candle) error
}

// CandleStore is a store that supports both directions.
type CandleStore interface {
	CandleReader
	CandleWriter
}
