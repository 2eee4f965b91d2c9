package store

import (
	"context"
	"sync"
)

// MemoryDriver keeps collections in process memory.
// Records are stored encoded so that callers never share maps with the store
// and read back the same shapes a persistent driver would return.
type MemoryDriver struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemoryDriver creates an empty in-memory driver
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{collections: make(map[string]*memoryCollection)}
}

// Open returns the named collection, creating it if absent
func (d *MemoryDriver) Open(_ context.Context, name string) (Collection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &memoryCollection{name: name, docs: make(map[string][]byte)}
		d.collections[name] = c
	}
	return c, nil
}

// Close is a no-op
func (d *MemoryDriver) Close() error {
	return nil
}

type memoryCollection struct {
	name  string
	mu    sync.RWMutex
	order []string
	docs  map[string][]byte
}

func (c *memoryCollection) Name() string {
	return c.name
}

func (c *memoryCollection) Find(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var wanted map[string]bool
	if !q.All() {
		wanted = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			wanted[id] = true
		}
	}

	records := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		if wanted != nil && !wanted[id] {
			continue
		}
		record, err := decodeRecord(id, c.docs[id])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.docs[id]
	if !ok {
		return nil, notFound(c.name, id)
	}
	return decodeRecord(id, data)
}

func (c *memoryCollection) Insert(ctx context.Context, record Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := NewID()
	c.docs[id] = data
	c.order = append(c.order, id)
	return decodeRecord(id, data)
}

func (c *memoryCollection) Update(ctx context.Context, id string, partial Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.docs[id]
	if !ok {
		return notFound(c.name, id)
	}
	current, err := decodeRecord(id, data)
	if err != nil {
		return err
	}
	updated, err := encodeRecord(merge(current, partial))
	if err != nil {
		return err
	}
	c.docs[id] = updated
	return nil
}

func (c *memoryCollection) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return notFound(c.name, id)
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}
