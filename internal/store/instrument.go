package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-cms/inkwell/internal/metrics"
)

// instrumentedCollection records metrics and logs failures for every operation
type instrumentedCollection struct {
	Collection
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (c *instrumentedCollection) Find(ctx context.Context, q Query) ([]Record, error) {
	start := time.Now()
	records, err := c.Collection.Find(ctx, q)
	c.observe("find", start, err)
	return records, storeError("find", c.Name(), err)
}

func (c *instrumentedCollection) FindOne(ctx context.Context, id string) (Record, error) {
	start := time.Now()
	record, err := c.Collection.FindOne(ctx, id)
	c.observe("find_one", start, err)
	return record, storeError("find_one", c.Name(), err)
}

func (c *instrumentedCollection) Insert(ctx context.Context, record Record) (Record, error) {
	start := time.Now()
	inserted, err := c.Collection.Insert(ctx, record)
	c.observe("insert", start, err)
	return inserted, storeError("insert", c.Name(), err)
}

func (c *instrumentedCollection) Update(ctx context.Context, id string, partial Record) error {
	start := time.Now()
	err := c.Collection.Update(ctx, id, partial)
	c.observe("update", start, err)
	return storeError("update", c.Name(), err)
}

func (c *instrumentedCollection) Remove(ctx context.Context, id string) error {
	start := time.Now()
	err := c.Collection.Remove(ctx, id)
	c.observe("remove", start, err)
	return storeError("remove", c.Name(), err)
}

func (c *instrumentedCollection) observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
		c.logger.Debug("collection operation failed",
			zap.String("collection", c.Name()),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	if c.metrics != nil {
		c.metrics.ObserveStore(c.Name(), op, outcome, time.Since(start))
	}
}
