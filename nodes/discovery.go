package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"go.uber.org/zap"
)

const DefaultTTL = 30 * time.Second

var (
	keyAll = cache.Key(cache.PrefixNodes, "all")
	keyMap = cache.Key(cache.PrefixNodes, "map")
)

type Config struct {
	PrimaryIP       string
	Seeds           []string
	Port            int
	Timeout         time.Duration
	OnlineThreshold time.Duration
	TTL             time.Duration
}

// Discovery builds the node roster from the gossip network.
type Discovery struct {
	cfg    Config
	cache  cache.Cache
	dial   gossip.Factory
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Discovery)

// WithClock replaces time.Now, used for online classification.
func WithClock(now func() time.Time) Option {
	return func(d *Discovery) { d.now = now }
}

func NewDiscovery(cfg Config, c cache.Cache, dial gossip.Factory, logger *zap.Logger, opts ...Option) *Discovery {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.OnlineThreshold <= 0 {
		cfg.OnlineThreshold = DefaultOnlineThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = gossip.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Discovery{
		cfg:    cfg,
		cache:  c,
		dial:   dial,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetAllNodes returns the known nodes, one entry per pubkey.
func (d *Discovery) GetAllNodes(ctx context.Context) []Node {
	return d.nodes(ctx, keyAll, true)
}

// GetAllNodesForMap returns every advertised endpoint, so a pubkey may appear
// once per address.
func (d *Discovery) GetAllNodesForMap(ctx context.Context) []Node {
	return d.nodes(ctx, keyMap, false)
}

func (d *Discovery) GetNodeByPubkey(ctx context.Context, pubkey string) (Node, bool) {
	for _, n := range d.GetAllNodes(ctx) {
		if n.Pubkey == pubkey {
			return n, true
		}
	}
	return Node{}, false
}

// Refresh drops the cached roster and rediscovers it.
func (d *Discovery) Refresh(ctx context.Context) []Node {
	d.cache.Delete(ctx, keyAll)
	d.cache.Delete(ctx, keyMap)
	return d.GetAllNodes(ctx)
}

// OnlineThreshold is the last-seen age up to which a node counts as online.
func (d *Discovery) OnlineThreshold() time.Duration {
	return d.cfg.OnlineThreshold
}

func (d *Discovery) nodes(ctx context.Context, key string, dedup bool) []Node {
	if list, ok := cache.GetJSON[[]Node](ctx, d.cache, key); ok {
		return d.enrich(ctx, list)
	}

	list := d.discover(ctx, dedup)
	if len(list) > 0 {
		if err := cache.SetJSON(ctx, d.cache, key, list, d.cfg.TTL); err != nil {
			d.logger.Error(fmt.Sprintf("discovery: cache node list: %v", err))
		}
	}
	return d.enrich(ctx, list)
}

func (d *Discovery) discover(ctx context.Context, dedup bool) []Node {
	pods := d.FetchPods(ctx)
	now := d.now()

	list := make([]Node, 0, len(pods))
	skipped := 0
	for _, pod := range pods {
		n, err := Normalize(pod, now, d.cfg.OnlineThreshold)
		if err != nil {
			d.logger.Debug(fmt.Sprintf("discovery: skipping record: %v", err))
			skipped++
			continue
		}
		if n.Pubkey == "" {
			skipped++
			continue
		}
		list = append(list, n)
	}
	if dedup {
		list = Dedup(list)
	}

	d.logger.Info(fmt.Sprintf("discovery: %d nodes from %d records (%d skipped)", len(list), len(pods), skipped))
	return list
}

// FetchPods returns the raw records of the first endpoint that yields any:
// the primary (with stats, then plain) and then each seed in order. Total
// failure yields nil.
func (d *Discovery) FetchPods(ctx context.Context) []gossip.Pod {
	if ip := d.cfg.PrimaryIP; ip != "" {
		client := d.dial(ip, d.cfg.Port, d.cfg.Timeout)

		resp, err := client.GetPodsWithStats(ctx)
		if err != nil {
			gossip.LogFailure(d.logger, fmt.Sprintf("discovery: %s %s", ip, gossip.MethodGetPodsWithStats), err)
			resp, err = client.GetPods(ctx)
			if err != nil {
				gossip.LogFailure(d.logger, fmt.Sprintf("discovery: %s %s", ip, gossip.MethodGetPods), err)
			}
		}
		if err == nil && len(resp.Pods) > 0 {
			return resp.Pods
		}
	}

	for _, seed := range d.cfg.Seeds {
		if seed == d.cfg.PrimaryIP {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		resp, err := d.dial(seed, d.cfg.Port, d.cfg.Timeout).GetPods(ctx)
		if err != nil {
			gossip.LogFailure(d.logger, fmt.Sprintf("discovery: seed %s", seed), err)
			continue
		}
		if len(resp.Pods) > 0 {
			d.logger.Info(fmt.Sprintf("discovery: using seed %s", seed))
			return resp.Pods
		}
	}

	d.logger.Warn("discovery: primary and all seeds exhausted, no nodes")
	return nil
}

func (d *Discovery) enrich(ctx context.Context, list []Node) []Node {
	out := make([]Node, len(list))
	for i, n := range list {
		if st, ok := cache.GetJSON[gossip.NodeStats](ctx, d.cache, cache.NodeStatsKey(n.Pubkey)); ok {
			ramUsed, ramTotal := st.RAMUsed, st.RAMTotal
			n.RAMUsed = &ramUsed
			n.RAMTotal = &ramTotal
		}
		out[i] = n
	}
	return out
}
