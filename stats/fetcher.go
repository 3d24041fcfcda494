package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"go.uber.org/zap"
)

const (
	DefaultRPCTimeout = 8 * time.Second
	DefaultTTL        = 120 * time.Second
)

// ErrNodeUnavailable means the node is offline or has no address, so no
// stats call was attempted.
var ErrNodeUnavailable = errors.New("node offline or without address")

// NodeSource is the part of the discovery service the stats code needs.
type NodeSource interface {
	GetAllNodes(ctx context.Context) []nodes.Node
	GetNodeByPubkey(ctx context.Context, pubkey string) (nodes.Node, bool)
}

// Fetcher issues get-stats directly against a node and caches the answer.
type Fetcher struct {
	source  NodeSource
	cache   cache.Cache
	dial    gossip.Factory
	timeout time.Duration
	ttl     time.Duration
	logger  *zap.Logger
}

func NewFetcher(source NodeSource, c cache.Cache, dial gossip.Factory, timeout, ttl time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source:  source,
		cache:   c,
		dial:    dial,
		timeout: timeout,
		ttl:     ttl,
		logger:  logger,
	}
}

// Fetch calls the node's own pRPC endpoint.
func (f *Fetcher) Fetch(ctx context.Context, n nodes.Node) (*gossip.NodeStats, error) {
	if !n.IsOnline() || n.IP() == "" {
		return nil, ErrNodeUnavailable
	}

	st, err := f.dial(n.IP(), n.RPCPort, f.timeout).GetStats(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, f.cache, cache.NodeStatsKey(n.Pubkey), st, f.ttl); err != nil {
		f.logger.Error(fmt.Sprintf("stats: cache %s: %v", n.Pubkey, err))
	}
	return st, nil
}

// Cached returns the stats stored by a previous fetch, if still fresh.
func (f *Fetcher) Cached(ctx context.Context, pubkey string) (*gossip.NodeStats, bool) {
	st, ok := cache.GetJSON[gossip.NodeStats](ctx, f.cache, cache.NodeStatsKey(pubkey))
	if !ok {
		return nil, false
	}
	return &st, true
}

// GetNodeStats serves a single node's stats, from cache when warm and by a
// direct call otherwise. Unknown, offline and unreachable nodes are absent.
func (f *Fetcher) GetNodeStats(ctx context.Context, pubkey string) (*gossip.NodeStats, bool) {
	if st, ok := f.Cached(ctx, pubkey); ok {
		return st, true
	}

	n, ok := f.source.GetNodeByPubkey(ctx, pubkey)
	if !ok {
		return nil, false
	}
	st, err := f.Fetch(ctx, n)
	if err != nil {
		if !errors.Is(err, ErrNodeUnavailable) {
			gossip.LogFailure(f.logger, fmt.Sprintf("stats: %s", n.Address), err)
		}
		return nil, false
	}
	return st, true
}
