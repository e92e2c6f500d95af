package recommend

import (
	"context"
	"encoding/json"
)

// KV is a string key/value table with write-once keys,
// satisfied by *sqlcache.Cache.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// KVCache adapts a KV table into a result Cache by storing results as JSON.
type KVCache struct {
	kv KV
}

// NewKVCache wraps a key/value table as a result cache.
func NewKVCache(kv KV) *KVCache {
	return &KVCache{kv: kv}
}

// Get implements Cache.
func (c *KVCache) Get(ctx context.Context, query string) ([]RankedResult, bool, error) {
	payload, ok, err := c.kv.Get(ctx, query)
	if err != nil || !ok {
		return nil, false, err
	}
	var results []RankedResult
	if err := json.Unmarshal([]byte(payload), &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

// Put implements Cache.
func (c *KVCache) Put(ctx context.Context, query string, results []RankedResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.kv.Put(ctx, query, string(payload))
}
