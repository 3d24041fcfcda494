package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fallback composes the remote and local tiers. Reads try remote first and
// fall back to local; writes go to both; nothing is ever reported to the
// caller as an error.
type Fallback struct {
	remote  Store
	local   Store
	logger  *zap.Logger
	metrics *Metrics
}

// NewFallback builds the tiered cache. remote may be nil for a local-only
// deployment; metrics may be nil.
func NewFallback(remote Store, local Store, logger *zap.Logger, metrics *Metrics) *Fallback {
	if local == nil {
		local = NewLocal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Fallback{
		remote:  remote,
		local:   local,
		logger:  logger,
		metrics: metrics,
	}
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, bool) {
	if f.remote != nil {
		raw, ok, err := f.remote.Get(ctx, key)
		switch {
		case err != nil:
			f.metrics.RemoteReadFailures.Inc()
			if !errors.Is(err, ErrRemoteUnavailable) {
				f.logger.Warn(fmt.Sprintf("cache get %q: remote tier: %v", key, err))
			}
		case ok:
			f.metrics.Hits.Inc()
			return raw, true
		}
	}

	raw, ok, _ := f.local.Get(ctx, key)
	if ok {
		f.metrics.LocalHits.Inc()
		return raw, true
	}
	f.metrics.Misses.Inc()
	return nil, false
}

func (f *Fallback) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	var wg sync.WaitGroup
	if f.remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.remote.Set(ctx, key, value, ttl); err != nil {
				f.metrics.RemoteWriteFailures.Inc()
				f.logger.Warn(fmt.Sprintf("cache set %q: remote tier: %v", key, err))
			}
		}()
	}
	_ = f.local.Set(ctx, key, value, ttl)
	wg.Wait()
}

func (f *Fallback) Delete(ctx context.Context, key string) {
	if f.remote != nil {
		if err := f.remote.Delete(ctx, key); err != nil && !errors.Is(err, ErrRemoteUnavailable) {
			f.logger.Warn(fmt.Sprintf("cache delete %q: remote tier: %v", key, err))
		}
	}
	_ = f.local.Delete(ctx, key)
}

var _ Cache = (*Fallback)(nil)
