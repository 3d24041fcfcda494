package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnState is the health of the remote tier as last observed.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

const (
	defaultOpTimeout    = 2 * time.Second
	defaultPingInterval = 15 * time.Second
)

// Remote is the shared tier backed by Redis. Its operations never wait for a
// reconnect: while the tier is down they fail fast with ErrRemoteUnavailable
// and a background monitor brings the connection back.
type Remote struct {
	client *redis.Client
	logger *zap.Logger

	opTimeout    time.Duration
	pingInterval time.Duration

	state     atomic.Int32
	everUp    atomic.Bool
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type RemoteOption func(*Remote)

// WithOpTimeout bounds every Redis command.
func WithOpTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.opTimeout = d }
}

// WithPingInterval sets how often the monitor checks a healthy connection.
func WithPingInterval(d time.Duration) RemoteOption {
	return func(r *Remote) { r.pingInterval = d }
}

// NewRemote parses a redis:// URL and returns an unconnected tier. Call Start
// to run the health monitor.
func NewRemote(url string, logger *zap.Logger, opts ...RemoteOption) (*Remote, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Remote{
		logger:       logger,
		opTimeout:    defaultOpTimeout,
		pingInterval: defaultPingInterval,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	redisOpts.DialTimeout = r.opTimeout
	redisOpts.ReadTimeout = r.opTimeout
	redisOpts.WriteTimeout = r.opTimeout
	redisOpts.MaxRetries = -1
	r.client = redis.NewClient(redisOpts)
	return r, nil
}

// Start pings once and then supervises the connection until Close.
func (r *Remote) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	if err := r.ping(ctx); err != nil {
		r.logger.Warn(fmt.Sprintf("remote cache: initial connect failed: %v", err))
	} else {
		r.markUp()
	}
	go r.monitor(ctx)
}

// State returns the last observed connection health.
func (r *Remote) State() ConnState {
	return ConnState(r.state.Load())
}

func (r *Remote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.State() != Connected {
		return nil, false, ErrRemoteUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	raw, err := r.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		r.failed(ctx, err)
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Remote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.State() != Connected {
		return ErrRemoteUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, key, value, ttl).Err(); err != nil {
		r.failed(ctx, err)
		return err
	}
	return nil
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	if r.State() != Connected {
		return ErrRemoteUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Del(opCtx, key).Err(); err != nil {
		r.failed(ctx, err)
		return err
	}
	return nil
}

// Close stops the monitor and releases the connection pool.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
			<-r.done
		}
		err = r.client.Close()
	})
	return err
}

func (r *Remote) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *Remote) markUp() {
	if ConnState(r.state.Swap(int32(Connected))) == Connected {
		return
	}
	if r.everUp.Swap(true) {
		r.logger.Info("remote cache: reconnected")
	} else {
		r.logger.Info("remote cache: connected")
	}
}

// failed marks the tier down unless the caller gave up on the request.
func (r *Remote) failed(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	r.markDown(err)
}

func (r *Remote) markDown(cause error) {
	if ConnState(r.state.Swap(int32(Disconnected))) == Disconnected {
		return
	}
	r.logger.Warn(fmt.Sprintf("remote cache: disconnected, falling back to local tier: %v", cause))
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Remote) monitor(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}

		if r.State() == Connected {
			if err := r.ping(ctx); err != nil && ctx.Err() == nil {
				r.markDown(err)
			}
			continue
		}
		r.reconnect(ctx)
	}
}

func (r *Remote) reconnect(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		return r.ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		r.logger.Debug(fmt.Sprintf("remote cache: reconnect failed, retrying in %v: %v", next, err))
	})
	if err == nil {
		r.markUp()
	}
}

var _ Store = (*Remote)(nil)
