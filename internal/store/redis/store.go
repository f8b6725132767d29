// Package redis reads and appends candles on Redis Streams, one stream per
// instrument and timeframe ("candle:{tf}s:{exchange}:{symbol}"), each entry
// carrying the candle JSON in its "data" field. All calls go through a
// circuit breaker so a dead Redis fails fast.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"ta-engine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultStreamMaxLen = 50000
	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// Config configures the Redis candle store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	StreamMaxLen int64 // approximate per-stream cap applied on XADD

	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // open → half-open delay

	OnBreakerChange func(from, to State) // optional, e.g. for metrics
}

// Store is a Redis Streams candle store.
type Store struct {
	client *goredis.Client
	cb     *CircuitBreaker
	maxLen int64
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// Breaker returns the circuit breaker guarding the client.
func (s *Store) Breaker() *CircuitBreaker { return s.cb }

// New creates a Redis Store and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	reset := cfg.ResetTimeout
	if reset <= 0 {
		reset = defaultResetTimeout
	}
	maxLen := cfg.StreamMaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}

	cb := NewCircuitBreaker(maxFailures, reset)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s → %s", from, to)
		if cfg.OnBreakerChange != nil {
			cfg.OnBreakerChange(from, to)
		}
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client, cb: cb, maxLen: maxLen}, nil
}

// ReadCandles returns the candles matching q, ordered by timestamp ascending.
//
// Stream IDs reflect insertion time rather than candle time, so the time
// range is applied after decoding. Without a range, a limited query reads
// only the newest q.Limit entries.
func (s *Store) ReadCandles(ctx context.Context, q model.CandleQuery) ([]model.Candle, error) {
	key := model.StreamKey(q.Exchange, q.Symbol, q.TF)

	var msgs []goredis.XMessage
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		if q.Limit > 0 && q.From.IsZero() && q.To.IsZero() {
			msgs, err = s.client.XRevRangeN(ctx, key, "+", "-", int64(q.Limit)).Result()
		} else {
			msgs, err = s.client.XRange(ctx, key, "-", "+").Result()
		}
		if err == goredis.Nil {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis read %s: %w", key, err)
	}

	return selectCandles(decodeMessages(key, msgs), q), nil
}

// WriteCandles appends candles to their streams in one pipeline.
func (s *Store) WriteCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	return s.cb.Execute(ctx, func(ctx context.Context) error {
		pipe := s.client.Pipeline()
		for i := range candles {
			c := &candles[i]
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("marshal candle %s: %w", c.Key(), err)
			}
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: c.StreamKey(),
				MaxLen: s.maxLen,
				Approx: true,
				Values: map[string]interface{}{"data": string(data)},
			})
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis xadd pipeline: %w", err)
		}
		return nil
	})
}

// Ping checks the connection through the circuit breaker.
func (s *Store) Ping(ctx context.Context) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

// Close closes the Redis client.
func (s *Store) Close() error {
	log.Printf("[redis] closing connection")
	return s.client.Close()
}

// decodeMessages parses the "data" field of each stream entry. Malformed
// entries are logged and skipped.
func decodeMessages(key string, msgs []goredis.XMessage) []model.Candle {
	candles := make([]model.Candle, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			log.Printf("[redis] unmarshal candle %s/%s: %v", key, msg.ID, err)
			continue
		}
		candles = append(candles, c)
	}
	return candles
}

// selectCandles orders candles by time, keeps the last entry for a repeated
// timestamp, applies the query range, then keeps the newest q.Limit.
func selectCandles(candles []model.Candle, q model.CandleQuery) []model.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].TS.Before(candles[j].TS) })

	out := candles[:0]
	for _, c := range candles {
		if !q.From.IsZero() && c.TS.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && c.TS.After(q.To) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].TS.Equal(c.TS) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}
