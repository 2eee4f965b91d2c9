package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every collection key
	Prefix string
}

// RedisDriver stores each collection as a hash keyed by record identifier
type RedisDriver struct {
	client *redis.Client
	prefix string
}

// NewRedisDriver creates a driver from connection settings
func NewRedisDriver(cfg RedisConfig) *RedisDriver {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisDriverWithClient(client, cfg.Prefix)
}

// NewRedisDriverWithClient creates a driver on an existing client
func NewRedisDriverWithClient(client *redis.Client, prefix string) *RedisDriver {
	return &RedisDriver{client: client, prefix: prefix}
}

// Ping verifies the server connection
func (d *RedisDriver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Open returns a handle on the hash backing the named collection.
// Redis creates the hash on first write, so nothing is sent to the server here.
func (d *RedisDriver) Open(_ context.Context, name string) (Collection, error) {
	return &redisCollection{name: name, key: d.prefix + name, client: d.client}, nil
}

// Close closes the client
func (d *RedisDriver) Close() error {
	return d.client.Close()
}

type redisCollection struct {
	name   string
	key    string
	client *redis.Client
}

func (c *redisCollection) Name() string {
	return c.name
}

func (c *redisCollection) Find(ctx context.Context, q Query) ([]Record, error) {
	if q.All() {
		docs, err := c.client.HGetAll(ctx, c.key).Result()
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		records := make([]Record, 0, len(ids))
		for _, id := range ids {
			record, err := decodeRecord(id, []byte(docs[id]))
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		return records, nil
	}

	ids := idSet(q.IDs)
	if len(ids) == 0 {
		return []Record{}, nil
	}
	values, err := c.client.HMGet(ctx, c.key, ids...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(ids))
	for i, v := range values {
		doc, ok := v.(string)
		if !ok {
			continue
		}
		record, err := decodeRecord(ids[i], []byte(doc))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *redisCollection) FindOne(ctx context.Context, id string) (Record, error) {
	doc, err := c.client.HGet(ctx, c.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(c.name, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(id, []byte(doc))
}

func (c *redisCollection) Insert(ctx context.Context, record Record) (Record, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}
	id := NewID()
	if err := c.client.HSet(ctx, c.key, id, string(data)).Err(); err != nil {
		return nil, err
	}
	return decodeRecord(id, data)
}

// maxUpdateRetries bounds how often Update restarts after another writer
// touched the collection hash between its read and its write.
const maxUpdateRetries = 100

// Update reads, merges and writes back under WATCH. WATCH covers the whole
// hash, so a write to any record of the collection aborts the transaction;
// the read-merge-write is then retried against the fresh record.
func (c *redisCollection) Update(ctx context.Context, id string, partial Record) error {
	txf := func(tx *redis.Tx) error {
		doc, err := tx.HGet(ctx, c.key, id).Result()
		if errors.Is(err, redis.Nil) {
			return notFound(c.name, id)
		}
		if err != nil {
			return err
		}

		current, err := decodeRecord(id, []byte(doc))
		if err != nil {
			return err
		}
		data, err := encodeRecord(merge(current, partial))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.key, id, string(data))
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := c.client.Watch(ctx, txf, c.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("update %s/%s: %w after %d attempts", c.name, id, redis.TxFailedErr, maxUpdateRetries)
}

func (c *redisCollection) Remove(ctx context.Context, id string) error {
	removed, err := c.client.HDel(ctx, c.key, id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return notFound(c.name, id)
	}
	return nil
}
