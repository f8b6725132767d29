// Package analysis runs indicator sets over candles read from a store.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ta-engine/internal/indicator"
	"ta-engine/internal/logger"
	"ta-engine/internal/metrics"
	"ta-engine/internal/model"
)

var (
	// ErrNoCandles is returned when the store has no candles for a query.
	ErrNoCandles = errors.New("no candles match the query")
	// ErrInvalidQuery is returned for a query missing its instrument or timeframe.
	ErrInvalidQuery = errors.New("invalid candle query")
	// ErrInvalidIndicators wraps indicator configuration errors.
	ErrInvalidIndicators = errors.New("invalid indicator configuration")
)

// Request selects candles and the indicators to run over them.
// Empty Indicators falls back to the service defaults.
type Request struct {
	Query      model.CandleQuery
	Indicators []indicator.Config
}

// Result is an indicator run. Times, Candles and every line of every series
// share one length and index.
type Result struct {
	Exchange string
	Symbol   string
	TF       int
	Times    []time.Time
	Candles  []model.Candle
	Series   []model.IndicatorSeries
}

// Service reads candles and computes indicators over them.
type Service struct {
	reader   model.CandleReader
	driver   string
	defaults []indicator.Config
	prom     *metrics.Metrics
	log      *slog.Logger
}

// New creates a Service. driver labels store metrics; defaults is used
// when a request names no indicators.
func New(reader model.CandleReader, driver string, defaults []indicator.Config, prom *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		reader:   reader,
		driver:   driver,
		defaults: defaults,
		prom:     prom,
		log:      log.With(slog.String("component", "analysis")),
	}
}

// Defaults returns the indicator set used when a request names none.
func (s *Service) Defaults() []indicator.Config { return s.defaults }

// Analyze reads the requested candles and computes indicators over them.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	q := req.Query
	if q.Exchange == "" || q.Symbol == "" || q.TF <= 0 {
		return nil, fmt.Errorf("%w: exchange, symbol and tf are required", ErrInvalidQuery)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("%w: to before from", ErrInvalidQuery)
	}
	cfgs, err := s.configs(req.Indicators)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candles, err := s.reader.ReadCandles(ctx, q)
	if s.prom != nil {
		s.prom.StoreReadDur.WithLabelValues(s.driver).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.prom != nil {
			s.prom.StoreErrors.WithLabelValues(s.driver).Inc()
		}
		return nil, fmt.Errorf("read candles %s:%s tf=%d: %w", q.Exchange, q.Symbol, q.TF, err)
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}

	res, err := s.compute(ctx, candles, cfgs)
	if err != nil {
		return nil, err
	}
	res.Exchange, res.Symbol, res.TF = q.Exchange, q.Symbol, q.TF
	return res, nil
}

// Compute runs indicators over caller-supplied candles without touching the
// store. Candles must already be in chronological order.
func (s *Service) Compute(ctx context.Context, candles []model.Candle, cfgs []indicator.Config) (*Result, error) {
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	normalized, err := s.configs(cfgs)
	if err != nil {
		return nil, err
	}
	res, err := s.compute(ctx, candles, normalized)
	if err != nil {
		return nil, err
	}
	res.Exchange, res.Symbol, res.TF = candles[0].Exchange, candles[0].Symbol, candles[0].TF
	return res, nil
}

// configs normalizes and validates cfgs, or returns the defaults.
func (s *Service) configs(cfgs []indicator.Config) ([]indicator.Config, error) {
	if len(cfgs) == 0 {
		cfgs = s.defaults
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no indicators requested", ErrInvalidIndicators)
	}
	out := make([]indicator.Config, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.Normalize()
	}
	if err := indicator.ValidateConfigs(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndicators, err)
	}
	return out, nil
}

func (s *Service) compute(ctx context.Context, candles []model.Candle, cfgs []indicator.Config) (*Result, error) {
	res := &Result{
		Times:   make([]time.Time, len(candles)),
		Candles: candles,
		Series:  make([]model.IndicatorSeries, 0, len(cfgs)),
	}
	for i := range candles {
		res.Times[i] = candles[i].TS
	}
	if s.prom != nil {
		s.prom.CandlesIn.Observe(float64(len(candles)))
	}

	in := indicator.NewInputs(candles)
	for _, cfg := range cfgs {
		start := time.Now()
		series, err := indicator.Series(in, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIndicators, err)
		}

		if s.prom != nil {
			s.prom.ComputeDur.WithLabelValues(cfg.Type).Observe(time.Since(start).Seconds())
			s.prom.SeriesTotal.WithLabelValues(cfg.Type).Inc()
		}
		if series.Defined() == 0 {
			if s.prom != nil {
				s.prom.DegenerateTotal.WithLabelValues(cfg.Type).Inc()
			}
			s.log.Debug("indicator has no defined values",
				append(logger.LogWithRequest(ctx),
					slog.String("indicator", series.Name),
					slog.Int("candles", len(candles)))...)
		}
		res.Series = append(res.Series, series)
	}

	s.log.Debug("computed indicators",
		append(logger.LogWithRequest(ctx),
			slog.Int("candles", len(candles)),
			slog.Int("series", len(res.Series)))...)
	return res, nil
}
