// Package store opens the configured candle store.
package store

import (
	"context"
	"errors"
	"fmt"

	"ta-engine/internal/model"
	"ta-engine/internal/store/redis"
	"ta-engine/internal/store/sqlstore"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ErrUnknownDriver is returned for a driver name Open does not know.
var ErrUnknownDriver = errors.New("unknown store driver")

// Store is a candle store that can be pinged for liveness.
type Store interface {
	model.CandleStore
	Ping(ctx context.Context) error
}

// Config selects and configures a store.
type Config struct {
	Driver string

	SQLitePath  string
	PostgresDSN string

	Redis redis.Config
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		s, err = openSQL(ctx, sqlstore.DriverSQLite, cfg.SQLitePath)
	case DriverPostgres:
		s, err = openSQL(ctx, sqlstore.DriverPostgres, cfg.PostgresDSN)
	case DriverRedis:
		var rs *redis.Store
		if rs, err = redis.New(ctx, cfg.Redis); err == nil {
			s = rs
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQL(ctx context.Context, driver, dsn string) (Store, error) {
	s, err := sqlstore.Open(ctx, sqlstore.Config{Driver: driver, DSN: dsn})
	if err != nil {
		return nil, err
	}
	return s, nil
}
