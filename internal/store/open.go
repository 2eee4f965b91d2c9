package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Supported driver names
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// DefaultConnectTimeout bounds Connect when no timeout is configured
const DefaultConnectTimeout = 10 * time.Second

// Drivers lists the accepted driver names
var Drivers = []string{DriverMemory, DriverSQLite, DriverPostgres, DriverRedis, DriverMongo}

// Config selects and configures a storage driver
type Config struct {
	Driver         string
	Path           string
	DSN            string
	ConnectTimeout time.Duration
	Redis          RedisConfig
	Mongo          MongoConfig
}

// Pinger is implemented by drivers backed by a network or file connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpenDriver constructs the configured driver and waits for it to become reachable
func OpenDriver(ctx context.Context, cfg Config, logger *zap.Logger) (Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		driver Driver
		err    error
	)
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryDriver(), nil
	case DriverSQLite:
		driver, err = OpenSQLite(cfg.Path)
	case DriverPostgres:
		driver, err = OpenPostgres(cfg.DSN)
	case DriverRedis:
		driver = NewRedisDriver(cfg.Redis)
	case DriverMongo:
		driver, err = NewMongoDriver(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if p, ok := driver.(Pinger); ok {
		if err := Connect(ctx, p, cfg.ConnectTimeout, logger.With(zap.String("driver", cfg.Driver))); err != nil {
			_ = driver.Close()
			return nil, err
		}
	}
	return driver, nil
}

// Connect pings until the backend answers or the timeout elapses,
// backing off exponentially between attempts.
func Connect(ctx context.Context, p Pinger, timeout time.Duration, logger *zap.Logger) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = timeout

	attempt := 0
	op := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return p.Ping(pingCtx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("store not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("failed to connect to store after %d attempts: %w", attempt, err)
	}
	return nil
}
