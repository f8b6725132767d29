// Package api exposes the indicator service over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ta-engine/internal/analysis"
	"ta-engine/internal/indicator"
	"ta-engine/internal/logger"
	"ta-engine/internal/metrics"
	"ta-engine/internal/model"
	"ta-engine/internal/store/redis"

	"github.com/gin-gonic/gin"
)

// Options configures the HTTP server.
type Options struct {
	Precision      int           // default decimal places of indicator values
	RateLimitRPS   float64       // per-IP; <= 0 disables rate limiting
	RateLimitBurst int
	RequestTimeout time.Duration // <= 0 disables the per-request deadline
	MaxCandles     int           // cap on candles accepted by the compute endpoint; 0 = no cap

	Health  http.Handler // health endpoint; nil reports a static ok
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server holds the gin router and the handlers' dependencies.
type Server struct {
	Router *gin.Engine

	svc  *analysis.Service
	opts Options
	log  *slog.Logger
}

// NewServer builds the router.
func NewServer(svc *analysis.Service, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		Router: gin.New(),
		svc:    svc,
		opts:   opts,
		log:    log.With(slog.String("component", "api")),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.Router
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(s.log, s.opts.Metrics))
	r.Use(CORSMiddleware())

	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.health)

	ind := v1.Group("/indicators")
	if s.opts.RateLimitRPS > 0 {
		ind.Use(RateLimitMiddleware(s.opts.RateLimitRPS, s.opts.RateLimitBurst, s.log))
	}
	if s.opts.RequestTimeout > 0 {
		ind.Use(TimeoutMiddleware(s.opts.RequestTimeout))
	}
	ind.GET("", s.getIndicators)
	ind.POST("/compute", s.computeIndicators)
}

func (s *Server) health(c *gin.Context) {
	if s.opts.Health != nil {
		s.opts.Health.ServeHTTP(c.Writer, c.Request)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getIndicators handles
// GET /api/v1/indicators?exchange=&symbol=&tf=&from=&to=&limit=&ind=&precision=
func (s *Server) getIndicators(c *gin.Context) {
	q := model.CandleQuery{
		Exchange: c.Query("exchange"),
		Symbol:   c.Query("symbol"),
	}
	var err error
	if q.TF, err = intParam(c, "tf", 0); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if q.Limit, err = intParam(c, "limit", 0); err != nil || q.Limit < 0 {
		s.fail(c, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
		return
	}
	if q.From, err = unixParam(c, "from"); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if q.To, err = unixParam(c, "to"); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	precision, err := s.precision(c.Query("precision"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	var cfgs []indicator.Config
	if spec := c.Query("ind"); spec != "" {
		if cfgs, err = indicator.ParseSpecs(spec); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	res, err := s.svc.Analyze(c.Request.Context(), analysis.Request{Query: q, Indicators: cfgs})
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, NewIndicatorResponse(res, precision))
}

// ComputeRequest is the body of POST /api/v1/indicators/compute.
type ComputeRequest struct {
	Candles    []model.Candle `json:"candles"`
	Indicators string         `json:"indicators"` // e.g. "SMA:20,RSI,MACD"; empty uses the defaults
	Precision  *int           `json:"precision,omitempty"`
}

// computeIndicators runs indicators over candles supplied in the body.
func (s *Server) computeIndicators(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if s.opts.MaxCandles > 0 && len(req.Candles) > s.opts.MaxCandles {
		s.fail(c, http.StatusBadRequest, errors.New("too many candles, max "+strconv.Itoa(s.opts.MaxCandles)))
		return
	}

	precision := s.opts.Precision
	if req.Precision != nil {
		if *req.Precision < 0 || *req.Precision > MaxPrecision {
			s.fail(c, http.StatusBadRequest, errors.New("precision out of range"))
			return
		}
		precision = *req.Precision
	}

	var cfgs []indicator.Config
	if req.Indicators != "" {
		var err error
		if cfgs, err = indicator.ParseSpecs(req.Indicators); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	sort.SliceStable(req.Candles, func(i, j int) bool { return req.Candles[i].TS.Before(req.Candles[j].TS) })

	res, err := s.svc.Compute(c.Request.Context(), req.Candles, cfgs)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, NewIndicatorResponse(res, precision))
}

func (s *Server) precision(raw string) (int, error) {
	if raw == "" {
		return s.opts.Precision, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 0 || p > MaxPrecision {
		return 0, errors.New("precision must be an integer in [0, " + strconv.Itoa(MaxPrecision) + "]")
	}
	return p, nil
}

// fail writes {"error": ...}; server-side failures are also logged.
func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", append(logger.LogWithRequest(c.Request.Context()), slog.String("error", err.Error()))...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrInvalidQuery), errors.Is(err, analysis.ErrInvalidIndicators):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNoCandles):
		return http.StatusNotFound
	case errors.Is(err, redis.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func unixParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errors.New(name + " must be unix seconds")
	}
	return time.Unix(v, 0).UTC(), nil
}
