package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Local is the in-process tier. Expired items are dropped when read; there is
// no background janitor.
type Local struct {
	items *gocache.Cache
}

func NewLocal() *Local {
	return &Local{items: gocache.New(gocache.NoExpiration, 0)}
}

func (l *Local) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	return raw, ok, nil
}

func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	l.items.Set(key, value, ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.items.Delete(key)
	return nil
}

var _ Store = (*Local)(nil)
