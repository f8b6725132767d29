package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"ta-engine/internal/indicator"
	"ta-engine/internal/store"
	"ta-engine/internal/store/redis"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const maxPrecision = 12

// Config holds all application configuration.
type Config struct {
	HTTP struct {
		Addr             string   `yaml:"addr"`
		RequestTimeoutMs *int     `yaml:"request_timeout_ms"` // 0 disables the deadline
		RateLimitRPS     *float64 `yaml:"rate_limit_rps"`     // 0 disables rate limiting
		RateLimitBurst   int      `yaml:"rate_limit_burst"`
		MaxCandles       int      `yaml:"max_candles"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Store struct {
		Driver      string `yaml:"driver"` // sqlite | postgres | redis
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		Redis       struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Indicators struct {
		Specs     string `yaml:"specs"`     // e.g. "SMA:20,EMA:9,MACD,RSI:14,KDJ:9,BOLL:20:2"
		Precision *int   `yaml:"precision"` // decimal places in responses; never nil after Load
	} `yaml:"indicators"`
}

// Load reads an optional .env file and an optional YAML file at path, then
// applies environment variable overrides and defaults. An empty path skips
// the YAML file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real env vars win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Store.PostgresDSN, "POSTGRES_DSN")
	setString(&c.Store.Redis.Addr, "REDIS_ADDR")
	setString(&c.Store.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Indicators.Specs, "INDICATOR_CONFIGS")

	for key, dst := range map[string]*int{
		"REDIS_DB":         &c.Store.Redis.DB,
		"RATE_LIMIT_BURST": &c.HTTP.RateLimitBurst,
		"MAX_CANDLES":      &c.HTTP.MaxCandles,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	if v := os.Getenv("PRECISION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRECISION: %q is not an integer", v)
		}
		c.Indicators.Precision = &n
	}
	if v := os.Getenv("REQUEST_TIMEOUT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT_MS: %q is not an integer", v)
		}
		c.HTTP.RequestTimeoutMs = &n
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %q is not a number", v)
		}
		c.HTTP.RateLimitRPS = &f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RequestTimeoutMs == nil {
		ms := 10000
		c.HTTP.RequestTimeoutMs = &ms
	}
	if c.HTTP.RateLimitRPS == nil {
		rps := 20.0
		c.HTTP.RateLimitRPS = &rps
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 50
	}
	if c.HTTP.MaxCandles == 0 {
		c.HTTP.MaxCandles = 100000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = store.DriverSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/candles.db"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Indicators.Specs == "" {
		c.Indicators.Specs = "SMA:20,EMA:9,MACD,RSI:14,KDJ:9,BOLL:20:2"
	}
	if c.Indicators.Precision == nil {
		p := 4
		c.Indicators.Precision = &p
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required")
		}
	case store.DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	case store.DriverRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver %q: %w", c.Store.Driver, store.ErrUnknownDriver)
	}
	if _, err := c.IndicatorConfigs(); err != nil {
		return fmt.Errorf("indicators.specs: %w", err)
	}
	if p := c.Precision(); p < 0 || p > maxPrecision {
		return fmt.Errorf("indicators.precision must be in [0, %d], got %d", maxPrecision, p)
	}
	if c.RateLimitRPS() < 0 || c.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("http rate limit must not be negative")
	}
	if c.RequestTimeout() < 0 {
		return fmt.Errorf("http.request_timeout_ms must not be negative")
	}
	if c.HTTP.MaxCandles < 0 {
		return fmt.Errorf("http.max_candles must not be negative")
	}
	return nil
}

// IndicatorConfigs parses the default indicator set.
func (c *Config) IndicatorConfigs() ([]indicator.Config, error) {
	return indicator.ParseSpecs(c.Indicators.Specs)
}

// Precision returns the default number of decimal places.
func (c *Config) Precision() int {
	if c.Indicators.Precision == nil {
		return 0
	}
	return *c.Indicators.Precision
}

// RequestTimeout returns the per-request deadline; 0 means none.
func (c *Config) RequestTimeout() time.Duration {
	if c.HTTP.RequestTimeoutMs == nil {
		return 0
	}
	return time.Duration(*c.HTTP.RequestTimeoutMs) * time.Millisecond
}

// RateLimitRPS returns the per-IP request rate; 0 means unlimited.
func (c *Config) RateLimitRPS() float64 {
	if c.HTTP.RateLimitRPS == nil {
		return 0
	}
	return *c.HTTP.RateLimitRPS
}

// StoreConfig maps the store section onto store.Open's configuration.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:      c.Store.Driver,
		SQLitePath:  c.Store.SQLitePath,
		PostgresDSN: c.Store.PostgresDSN,
		Redis: redis.Config{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
		},
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q", key, v)
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}
