// cmd/indcalc computes indicators over stored candles from the command line,
// and imports candle files into a store.
//
// Usage:
//
//	go run ./cmd/indcalc --exchange=NSE --symbol=RELIANCE --tf=300 --indicators=RSI:14,MACD
//	go run ./cmd/indcalc --import=candles.json --exchange=NSE --symbol=RELIANCE --tf=300 --pushgateway=http://localhost:9091
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"ta-engine/internal/analysis"
	"ta-engine/internal/api"
	"ta-engine/internal/indicator"
	"ta-engine/internal/logger"
	"ta-engine/internal/metrics"
	"ta-engine/internal/model"
	"ta-engine/internal/store"
	"ta-engine/internal/store/redis"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	_ = godotenv.Load()

	driver := flag.String("driver", store.DriverSQLite, "Candle store: sqlite, postgres or redis")
	dsn := flag.String("dsn", "data/candles.db", "SQLite path, PostgreSQL DSN or Redis address")
	exchange := flag.String("exchange", "", "Exchange, e.g. NSE")
	symbol := flag.String("symbol", "", "Symbol, e.g. RELIANCE")
	tf := flag.Int("tf", 60, "Timeframe in seconds")
	from := flag.Int64("from", 0, "Unix seconds to start from (0=open)")
	to := flag.Int64("to", 0, "Unix seconds to end at (0=open)")
	limit := flag.Int("limit", 0, "Keep only the most recent N candles (0=all)")
	specs := flag.String("indicators", "SMA:20,EMA:9,MACD,RSI:14,KDJ:9,BOLL:20:2", "Indicator specs: TYPE[:P1[:P2[:P3]]],...")
	format := flag.String("format", "table", "Output format: table or json")
	precision := flag.Int("precision", 4, "Decimal places in output")
	importPath := flag.String("import", "", "Import candles from a JSON array file instead of computing")
	pushURL := flag.String("pushgateway", "", "Push run metrics to this Prometheus Pushgateway URL (optional)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	lg := logger.InitWriter(os.Stderr, "indcalc", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	st, err := store.Open(ctx, storeConfig(*driver, *dsn))
	if err != nil {
		log.Fatalf("[indcalc] store open failed: %v", err)
	}
	defer st.Close()

	// Metrics are only collected when there is a gateway to push them to.
	var prom *metrics.Metrics
	if *pushURL != "" {
		reg := prometheus.NewRegistry()
		prom = metrics.NewMetricsWith(reg, reg)
		defer pushMetrics(prom, *pushURL)
	}

	if *importPath != "" {
		n, err := importFile(ctx, st, *importPath, *exchange, *symbol, *tf)
		if err != nil {
			log.Fatalf("[indcalc] import failed: %v", err)
		}
		if prom != nil {
			prom.CandlesImported.Add(float64(n))
		}
		fmt.Printf("imported %d candles into %s\n", n, *driver)
		return
	}

	cfgs, err := indicator.ParseSpecs(*specs)
	if err != nil {
		log.Fatalf("[indcalc] %v", err)
	}
	q := model.CandleQuery{Exchange: *exchange, Symbol: *symbol, TF: *tf, Limit: *limit}
	if *from > 0 {
		q.From = time.Unix(*from, 0).UTC()
	}
	if *to > 0 {
		q.To = time.Unix(*to, 0).UTC()
	}

	svc := analysis.New(st, *driver, cfgs, prom, lg)
	res, err := svc.Analyze(ctx, analysis.Request{Query: q})
	if err != nil {
		log.Fatalf("[indcalc] %v", err)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(api.NewIndicatorResponse(res, *precision)); err != nil {
			log.Fatalf("[indcalc] encode: %v", err)
		}
	case "table":
		if err := writeTable(os.Stdout, res, *precision); err != nil {
			log.Fatalf("[indcalc] write: %v", err)
		}
	default:
		log.Fatalf("[indcalc] unknown format %q", *format)
	}
}

func pushMetrics(prom *metrics.Metrics, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prom.Push(ctx, url, "indcalc"); err != nil {
		log.Printf("[indcalc] %v", err)
	}
}

func storeConfig(driver, dsn string) store.Config {
	cfg := store.Config{Driver: driver}
	switch driver {
	case store.DriverSQLite:
		cfg.SQLitePath = dsn
	case store.DriverPostgres:
		cfg.PostgresDSN = dsn
	case store.DriverRedis:
		cfg.Redis = redis.Config{Addr: dsn}
	}
	return cfg
}

// importFile loads a JSON array of candles and writes it to w. Candles
// without an instrument or timeframe take the flag values.
func importFile(ctx context.Context, w model.CandleWriter, path, exchange, symbol string, tf int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var candles []model.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range candles {
		c := &candles[i]
		if c.Exchange == "" {
			c.Exchange = exchange
		}
		if c.Symbol == "" {
			c.Symbol = symbol
		}
		if c.TF == 0 {
			c.TF = tf
		}
		if c.Exchange == "" || c.Symbol == "" || c.TF <= 0 {
			return 0, fmt.Errorf("candle %d: exchange, symbol and tf are required", i)
		}
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].TS.Before(candles[j].TS) })
	if err := w.WriteCandles(ctx, candles); err != nil {
		return 0, err
	}
	return len(candles), nil
}

// writeTable prints one row per candle: time, close, then every indicator
// line. Undefined values print as "-".
func writeTable(out io.Writer, res *analysis.Result, precision int) error {
	places := int32(min(max(precision, 0), api.MaxPrecision))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"time", "close"}
	var cols [][]string
	addCol := func(values []float64) {
		col := make([]string, len(values))
		for i, d := range model.NullDecimals(values, places) {
			col[i] = "-"
			if d.Valid {
				col[i] = d.Decimal.StringFixed(places)
			}
		}
		cols = append(cols, col)
	}

	addCol(indicator.Closes(res.Candles))
	for _, s := range res.Series {
		for _, l := range s.Lines {
			name := s.Name
			if len(s.Lines) > 1 {
				name += "." + l.Name
			}
			header = append(header, name)
			addCol(l.Values)
		}
	}

	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	row := make([]string, 0, len(header))
	for i, ts := range res.Times {
		row = append(row[:0], ts.UTC().Format("2006-01-02 15:04:05"))
		for _, col := range cols {
			row = append(row, col[i])
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}
