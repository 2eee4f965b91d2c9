package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/metrics"
)

// Gateway hands out one collection handle per resource type.
// Handles are opened on first use and cached for the process lifetime; the
// cache only grows. Two goroutines racing on a first access may both open a
// handle, in which case one is kept and the other discarded.
type Gateway struct {
	driver      Driver
	collections sync.Map // name -> Collection
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger used for collection lifecycle and failures
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics instruments every collection handle
func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a gateway over the given driver
func NewGateway(driver Driver, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		driver: driver,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Collection returns the handle for the named collection, opening it on first use
func (g *Gateway) Collection(ctx context.Context, name string) (Collection, error) {
	if c, ok := g.collections.Load(name); ok {
		return c.(Collection), nil
	}

	opened, err := g.driver.Open(ctx, name)
	if err != nil {
		g.logger.Error("failed to open collection", zap.String("collection", name), zap.Error(err))
		return nil, storeError("open", name, err)
	}

	var c Collection = &instrumentedCollection{
		Collection: opened,
		logger:     g.logger,
		metrics:    g.metrics,
	}
	actual, loaded := g.collections.LoadOrStore(name, c)
	if !loaded {
		g.logger.Debug("opened collection", zap.String("collection", name))
	}
	return actual.(Collection), nil
}

// Close releases the driver
func (g *Gateway) Close() error {
	return g.driver.Close()
}
