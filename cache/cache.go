package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Key namespaces. Every logical cache uses its own prefix so entries never collide.
const (
	PrefixNodes     = "pnodes"
	PrefixNodeStats = "pnode-stats"
	PrefixAnalytics = "analytics"
	PrefixGeo       = "geo"
)

// ErrRemoteUnavailable is returned by the remote tier while it is disconnected.
var ErrRemoteUnavailable = errors.New("remote cache unavailable")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is a single storage tier.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache is what the services consume. It never fails: a lookup that cannot
// be served is a miss and writes are best effort.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Key joins a namespace prefix and key parts with ':'.
func Key(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}

// NodeStatsKey is the key of the cached get-stats result of one node.
func NodeStatsKey(pubkey string) string {
	return Key(PrefixNodeStats, pubkey)
}

// GetJSON reads key and decodes it into a T. Undecodable entries are misses.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(ctx, key, raw, ttl)
	return nil
}
