// Package rediscache keeps composed reports in Redis for a short while.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
)

const (
	keyPrefix  = "alama:"
	defaultTTL = time.Minute
	scanBatch  = 100
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ report.Cache = (*Cache)(nil)

// New connects to the Redis server at conf.URL ("redis://host:port/db").
func New(conf core.RedisConfig) (*Cache, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	return NewWithClient(redis.NewClient(opts), conf.ReportTTL), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Ping(ctx context.Context) error {
	return errors.Wrap(c.client.Ping(ctx).Err(), "pinging redis")
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Get decodes the value stored under key into dst. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrapf(err, "getting %s", key)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

// Set stores value under key as JSON until the cache TTL elapses.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(), "setting %s", key)
}

// Delete drops the keys starting with any of the prefixes, in batches of scanBatch.
func (c *Cache) Delete(ctx context.Context, prefixes ...string) error {
	for _, prefix := range prefixes {
		iter := c.client.Scan(ctx, 0, keyPrefix+prefix+"*", scanBatch).Iterator()
		keys := make([]string, 0, scanBatch)
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
			if len(keys) >= scanBatch {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return errors.Wrapf(err, "deleting %s*", prefix)
				}
				keys = keys[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return errors.Wrapf(err, "scanning %s*", prefix)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrapf(err, "deleting %s*", prefix)
			}
		}
	}
	return nil
}
