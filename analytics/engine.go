package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"go.uber.org/zap"
)

const (
	PodsTTL        = 60 * time.Second
	NodeMetricsTTL = 60 * time.Second

	DefaultTopNodes = 10
)

var (
	keyPods        = cache.Key(cache.PrefixAnalytics, "pods")
	keyNodeMetrics = cache.Key(cache.PrefixAnalytics, "node-metrics")
)

// Source is the part of the discovery service the engine reads from.
type Source interface {
	GetAllNodes(ctx context.Context) []nodes.Node
	FetchPods(ctx context.Context) []gossip.Pod
	OnlineThreshold() time.Duration
}

// Engine derives network analytics from the node roster and the raw gossip
// records. Both inputs and the per-node metrics are cached.
type Engine struct {
	source Source
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time

	onMetrics func(list []nodes.Node, metrics []NodeMetrics)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source Source, c cache.Cache, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source: source,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetOnMetricsCallBack registers a function called with the nodes and their
// metrics every time the metrics are recomputed.
func (e *Engine) SetOnMetricsCallBack(fn func(list []nodes.Node, metrics []NodeMetrics)) {
	e.onMetrics = fn
}

// Pods returns the raw gossip records, cached for PodsTTL.
func (e *Engine) Pods(ctx context.Context) []gossip.Pod {
	if pods, ok := cache.GetJSON[[]gossip.Pod](ctx, e.cache, keyPods); ok {
		return pods
	}
	pods := e.source.FetchPods(ctx)
	if len(pods) > 0 {
		if err := cache.SetJSON(ctx, e.cache, keyPods, pods, PodsTTL); err != nil {
			e.logger.Error(fmt.Sprintf("analytics: cache pods: %v", err))
		}
	}
	return pods
}

func (e *Engine) GetSummary(ctx context.Context) AnalyticsSummary {
	return Summarize(e.Pods(ctx), e.now(), e.source.OnlineThreshold())
}

// Summarize aggregates raw records. An empty input yields a zero summary.
func Summarize(pods []gossip.Pod, now time.Time, threshold time.Duration) AnalyticsSummary {
	if len(pods) == 0 {
		return AnalyticsSummary{}
	}

	var s AnalyticsSummary
	var uptimeSum float64
	versions := make([]string, 0, len(pods))
	for _, p := range pods {
		if nodes.IsOnlineAt(p.LastSeenTimestamp, now, threshold) {
			s.OnlineNodes++
		}
		if p.StorageCommitted > 0 {
			s.TotalStorageCommitted += uint64(p.StorageCommitted)
		}
		if p.StorageUsed > 0 {
			s.TotalStorageUsed += uint64(p.StorageUsed)
		}
		uptimeSum += Uptime24h(p.Uptime)
		versions = append(versions, p.Version)
	}

	s.TotalNodes = len(pods)
	s.OfflineNodes = s.TotalNodes - s.OnlineNodes
	s.OnlinePercentage = percentage(s.OnlineNodes, s.TotalNodes)
	s.StorageUtilization = StorageUtilization(s.TotalStorageUsed, s.TotalStorageCommitted)
	s.AverageUptime24h = round2(uptimeSum / float64(len(pods)))
	s.ConsensusVersion = ConsensusVersion(versions)
	s.NetworkHealth = NetworkHealthFor(s.OnlinePercentage)
	return s
}

// GetNodeMetrics computes the metrics of every node, cached for
// NodeMetricsTTL.
func (e *Engine) GetNodeMetrics(ctx context.Context) []NodeMetrics {
	if list, ok := cache.GetJSON[[]NodeMetrics](ctx, e.cache, keyNodeMetrics); ok {
		return list
	}

	all := e.source.GetAllNodes(ctx)
	list := make([]NodeMetrics, 0, len(all))
	for _, n := range all {
		list = append(list, ComputeNodeMetrics(n))
	}
	if len(list) > 0 {
		if err := cache.SetJSON(ctx, e.cache, keyNodeMetrics, list, NodeMetricsTTL); err != nil {
			e.logger.Error(fmt.Sprintf("analytics: cache node metrics: %v", err))
		}
		if e.onMetrics != nil {
			e.onMetrics(all, list)
		}
	}
	return list
}

// MetricsByPubkey indexes GetNodeMetrics.
func (e *Engine) MetricsByPubkey(ctx context.Context) map[string]NodeMetrics {
	list := e.GetNodeMetrics(ctx)
	out := make(map[string]NodeMetrics, len(list))
	for _, m := range list {
		out[m.Pubkey] = m
	}
	return out
}

func (e *Engine) GetExtendedSummary(ctx context.Context) ExtendedSummary {
	ext := ExtendedSummary{
		AnalyticsSummary: e.GetSummary(ctx),
		GeneratedAt:      e.now().UTC(),
	}

	all := e.source.GetAllNodes(ctx)
	metrics := e.MetricsByPubkey(ctx)
	ext.UniqueNodes = len(all)

	var healthSum float64
	var counted int
	for _, n := range all {
		if n.IsPublic {
			ext.PublicNodes++
		}
		m, ok := metrics[n.Pubkey]
		if !ok {
			continue
		}
		counted++
		healthSum += m.HealthScore
		switch m.Tier {
		case TierExcellent:
			ext.Tiers.Excellent++
		case TierGood:
			ext.Tiers.Good++
		default:
			ext.Tiers.Poor++
		}
		if m.StorageUtilization > StoragePressureThreshold {
			ext.StoragePressureNodes++
		}
	}
	if counted > 0 {
		ext.AverageHealthScore = round2(healthSum / float64(counted))
	}

	dist := VersionDistributionOf(all)
	ext.VersionCount = len(dist)
	for _, d := range dist {
		if d.IsConsensus {
			ext.ConsensusPercentage = d.Percentage
		}
	}
	return ext
}

// GetTopNodes returns the n healthiest nodes. n <= 0 means DefaultTopNodes.
func (e *Engine) GetTopNodes(ctx context.Context, n int) []TopNode {
	if n <= 0 {
		n = DefaultTopNodes
	}

	all := e.source.GetAllNodes(ctx)
	metrics := e.MetricsByPubkey(ctx)
	top := make([]TopNode, 0, len(all))
	for _, node := range all {
		m, ok := metrics[node.Pubkey]
		if !ok {
			continue
		}
		top = append(top, TopNode{
			NodeMetrics:  m,
			Address:      node.Address,
			Version:      node.Version,
			Status:       string(node.Status),
			StorageUsed:  node.StorageUsed,
			StorageTotal: node.StorageTotal,
		})
	}

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].HealthScore != top[j].HealthScore {
			return top[i].HealthScore > top[j].HealthScore
		}
		return top[i].Uptime24h > top[j].Uptime24h
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

func (e *Engine) GetStoragePressure(ctx context.Context) StoragePressure {
	metrics := e.GetNodeMetrics(ctx)
	sp := StoragePressure{
		TotalNodes: len(metrics),
		Threshold:  StoragePressureThreshold,
		Nodes:      []NodeMetrics{},
	}
	for _, m := range metrics {
		if m.StorageUtilization > StoragePressureThreshold {
			sp.Nodes = append(sp.Nodes, m)
		}
	}
	sp.PressureNodes = len(sp.Nodes)
	if sp.TotalNodes > 0 {
		sp.Fraction = float64(sp.PressureNodes) / float64(sp.TotalNodes)
	}
	sp.Percentage = percentage(sp.PressureNodes, sp.TotalNodes)
	sort.SliceStable(sp.Nodes, func(i, j int) bool {
		return sp.Nodes[i].StorageUtilization > sp.Nodes[j].StorageUtilization
	})
	return sp
}

func (e *Engine) GetVersionDistribution(ctx context.Context) []VersionDistribution {
	return VersionDistributionOf(e.source.GetAllNodes(ctx))
}

// VersionDistributionOf counts nodes per version, most common first. Equal
// counts keep first-encountered order.
func VersionDistributionOf(list []nodes.Node) []VersionDistribution {
	versions := make([]string, 0, len(list))
	index := make(map[string]int)
	out := []VersionDistribution{}
	for _, n := range list {
		versions = append(versions, n.Version)
		i, ok := index[n.Version]
		if !ok {
			i = len(out)
			index[n.Version] = i
			out = append(out, VersionDistribution{Version: n.Version})
		}
		out[i].Count++
	}

	consensus := ConsensusVersion(versions)
	for i := range out {
		out[i].Percentage = percentage(out[i].Count, len(list))
		out[i].IsConsensus = out[i].Version == consensus
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// GetStorageAnalytics lists per-node storage, largest usage first.
func (e *Engine) GetStorageAnalytics(ctx context.Context) []StorageAnalytics {
	all := e.source.GetAllNodes(ctx)
	out := make([]StorageAnalytics, 0, len(all))
	for _, n := range all {
		out = append(out, StorageAnalytics{
			Pubkey:             n.Pubkey,
			Address:            n.Address,
			StorageUsed:        n.StorageUsed,
			StorageTotal:       n.StorageTotal,
			StorageUtilization: StorageUtilization(n.StorageUsed, n.StorageTotal),
			Status:             string(n.Status),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StorageUsed > out[j].StorageUsed })
	return out
}
