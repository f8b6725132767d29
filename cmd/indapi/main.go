// cmd/indapi serves technical indicators computed over stored candles.
//
// Usage:
//
//	go run ./cmd/indapi --config=config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ta-engine/config"
	"ta-engine/internal/analysis"
	"ta-engine/internal/api"
	"ta-engine/internal/logger"
	"ta-engine/internal/metrics"
	"ta-engine/internal/store"
	"ta-engine/internal/store/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[indapi] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[indapi] invalid config: %v", err)
	}
	defaults, err := cfg.IndicatorConfigs()
	if err != nil {
		log.Fatalf("[indapi] indicators: %v", err)
	}

	lg := logger.Init("indapi", logger.ParseLevel(cfg.Log.Level))
	if lg.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	prom := metrics.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeCfg := cfg.StoreConfig()
	storeCfg.Redis.OnBreakerChange = func(from, to redis.State) {
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redis.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
		lg.Warn("redis circuit breaker", slog.String("from", from.String()), slog.String("to", to.String()))
	}

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := store.Open(openCtx, storeCfg)
	openCancel()
	if err != nil {
		log.Fatalf("[indapi] store open failed (%s): %v", cfg.Store.Driver, err)
	}
	defer st.Close()

	health := metrics.NewHealthStatus(cfg.Store.Driver)
	health.StartLivenessChecker(ctx, st, 15*time.Second)

	svc := analysis.New(st, cfg.Store.Driver, defaults, prom, lg)
	srv := api.NewServer(svc, api.Options{
		Precision:      cfg.Precision(),
		RateLimitRPS:   cfg.RateLimitRPS(),
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout(),
		MaxCandles:     cfg.HTTP.MaxCandles,
		Health:         health,
		Metrics:        prom,
		Logger:         lg,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", slog.String("addr", cfg.HTTP.Addr), slog.String("store", cfg.Store.Driver), slog.Int("indicators", len(defaults)))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		lg.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		lg.Error("http server failed", slog.String("error", err.Error()))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", slog.String("error", err.Error()))
	}
	lg.Info("stopped")
}
