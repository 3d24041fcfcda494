package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

type fakeSource struct {
	nodes     []nodes.Node
	pods      []gossip.Pod
	podCalls  int
	nodeCalls int
}

func (s *fakeSource) GetAllNodes(context.Context) []nodes.Node {
	s.nodeCalls++
	return s.nodes
}

func (s *fakeSource) FetchPods(context.Context) []gossip.Pod {
	s.podCalls++
	return s.pods
}

func (s *fakeSource) OnlineThreshold() time.Duration {
	return nodes.DefaultOnlineThreshold
}

func newTestEngine(src *fakeSource) *Engine {
	return NewEngine(src, cache.NewFallback(nil, nil, nil, nil), nil, WithClock(func() time.Time { return testNow }))
}

func TestComputeNodeMetrics_Scenario(t *testing.T) {
	n := nodes.Node{
		Pubkey:        "abc",
		Status:        nodes.StatusOnline,
		UptimeSeconds: 43200,
		StorageUsed:   500_000_000_000,
		StorageTotal:  1_000_000_000_000,
	}

	m := ComputeNodeMetrics(n)
	assert.Equal(t, "abc", m.Pubkey)
	assert.Equal(t, 50.0, m.Uptime24h)
	assert.Equal(t, 50.0, m.StorageUtilization)
	assert.Equal(t, 60.0, m.HealthScore)
	assert.Equal(t, TierPoor, m.Tier)

	assert.Equal(t, m, ComputeNodeMetrics(n))
}

func TestHealthScore_Bounds(t *testing.T) {
	values := []float64{-50, 0, 12.345, 50, 99.999, 100, 250}
	for _, up := range values {
		for _, util := range values {
			for _, online := range []bool{true, false} {
				s := HealthScore(up, util, online)
				assert.GreaterOrEqual(t, s, 0.0, "uptime=%v util=%v online=%v", up, util, online)
				assert.LessOrEqual(t, s, 100.0, "uptime=%v util=%v online=%v", up, util, online)
			}
		}
	}
	assert.Equal(t, 100.0, HealthScore(100, 0, true))
	assert.Equal(t, 0.0, HealthScore(0, 100, false))
}

func TestNodeTier(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{100, TierExcellent},
		{90, TierExcellent},
		{89.99, TierGood},
		{75, TierGood},
		{74.99, TierPoor},
		{0, TierPoor},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, NodeTier(tt.score))
		})
	}
}

func TestNetworkHealthFor(t *testing.T) {
	assert.Equal(t, NetworkHealthy, NetworkHealthFor(100))
	assert.Equal(t, NetworkHealthy, NetworkHealthFor(95))
	assert.Equal(t, NetworkDegraded, NetworkHealthFor(94.99))
	assert.Equal(t, NetworkDegraded, NetworkHealthFor(85))
	assert.Equal(t, NetworkUnstable, NetworkHealthFor(84.99))
}

func TestUptime24hAndStorageUtilization(t *testing.T) {
	assert.Equal(t, 0.0, Uptime24h(-5))
	assert.Equal(t, 100.0, Uptime24h(86400*3))
	assert.Equal(t, 0.0, StorageUtilization(10, 0))
	assert.Equal(t, 33.33, StorageUtilization(1, 3))
}

func TestConsensusVersion(t *testing.T) {
	assert.Equal(t, "", ConsensusVersion(nil))
	assert.Equal(t, "0.8.0", ConsensusVersion([]string{"0.7.3", "0.8.0", "0.8.0"}))
	assert.Equal(t, "b", ConsensusVersion([]string{"b", "a", "a", "b"}))
}

func TestSummarize_OnlinePercentage(t *testing.T) {
	var pods []gossip.Pod
	for i := 0; i < 10; i++ {
		lastSeen := testNow.Unix() - 10
		if i == 9 {
			lastSeen = testNow.Unix() - 301
		}
		pods = append(pods, gossip.Pod{
			Pubkey:            fmt.Sprintf("pk-%d", i),
			Version:           "0.8.0",
			LastSeenTimestamp: lastSeen,
			StorageCommitted:  1000,
			StorageUsed:       250,
			Uptime:            86400,
		})
	}

	s := Summarize(pods, testNow, nodes.DefaultOnlineThreshold)
	assert.Equal(t, 10, s.TotalNodes)
	assert.Equal(t, 9, s.OnlineNodes)
	assert.Equal(t, 1, s.OfflineNodes)
	assert.Equal(t, 90.0, s.OnlinePercentage)
	assert.Equal(t, NetworkDegraded, s.NetworkHealth)
	assert.Equal(t, uint64(10_000), s.TotalStorageCommitted)
	assert.Equal(t, uint64(2_500), s.TotalStorageUsed)
	assert.Equal(t, 25.0, s.StorageUtilization)
	assert.Equal(t, 100.0, s.AverageUptime24h)
	assert.Equal(t, "0.8.0", s.ConsensusVersion)
}

func TestEngine_EmptyDiscovery(t *testing.T) {
	e := newTestEngine(&fakeSource{})
	ctx := context.Background()

	assert.Equal(t, AnalyticsSummary{}, e.GetSummary(ctx))
	assert.Empty(t, e.GetNodeMetrics(ctx))
	assert.Empty(t, e.GetTopNodes(ctx, 0))
	assert.Empty(t, e.GetVersionDistribution(ctx))
	assert.Empty(t, e.GetStorageAnalytics(ctx))

	sp := e.GetStoragePressure(ctx)
	assert.Equal(t, 0, sp.TotalNodes)
	assert.Equal(t, 0.0, sp.Fraction)
	assert.NotNil(t, sp.Nodes)

	ext := e.GetExtendedSummary(ctx)
	assert.Equal(t, 0, ext.UniqueNodes)
	assert.Equal(t, 0.0, ext.AverageHealthScore)
}

func TestEngine_CachesPodsAndMetrics(t *testing.T) {
	src := &fakeSource{
		pods: []gossip.Pod{{Pubkey: "a", LastSeenTimestamp: testNow.Unix()}},
		nodes: []nodes.Node{
			{Pubkey: "a", Status: nodes.StatusOnline, UptimeSeconds: 86400},
		},
	}
	e := newTestEngine(src)
	ctx := context.Background()

	var callbacks int
	e.SetOnMetricsCallBack(func(list []nodes.Node, metrics []NodeMetrics) {
		callbacks++
		require.Len(t, list, 1)
		require.Len(t, metrics, 1)
	})

	e.GetSummary(ctx)
	e.GetSummary(ctx)
	assert.Equal(t, 1, src.podCalls)

	first := e.GetNodeMetrics(ctx)
	second := e.GetNodeMetrics(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, callbacks)
	assert.Equal(t, 100.0, first[0].HealthScore)
	assert.Equal(t, TierExcellent, first[0].Tier)
}

func TestEngine_TopNodesAndPressure(t *testing.T) {
	src := &fakeSource{nodes: []nodes.Node{
		{Pubkey: "low", Status: nodes.StatusOffline, UptimeSeconds: 0, StorageUsed: 90, StorageTotal: 100},
		{Pubkey: "best", Status: nodes.StatusOnline, UptimeSeconds: 86400, StorageUsed: 0, StorageTotal: 100},
		{Pubkey: "mid", Status: nodes.StatusOnline, UptimeSeconds: 43200, StorageUsed: 50, StorageTotal: 100},
		{Pubkey: "unknown-cap", Status: nodes.StatusOnline, UptimeSeconds: 86400, StorageUsed: 10},
	}}
	e := newTestEngine(src)
	ctx := context.Background()

	top := e.GetTopNodes(ctx, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "best", top[0].Pubkey)
	assert.Equal(t, "unknown-cap", top[1].Pubkey)
	assert.Equal(t, "online", top[0].Status)

	all := e.GetTopNodes(ctx, 0)
	require.Len(t, all, 4)
	assert.Equal(t, "low", all[3].Pubkey)

	sp := e.GetStoragePressure(ctx)
	assert.Equal(t, 4, sp.TotalNodes)
	assert.Equal(t, 1, sp.PressureNodes)
	assert.Equal(t, 0.25, sp.Fraction)
	assert.Equal(t, 25.0, sp.Percentage)
	require.Len(t, sp.Nodes, 1)
	assert.Equal(t, "low", sp.Nodes[0].Pubkey)

	storage := e.GetStorageAnalytics(ctx)
	require.Len(t, storage, 4)
	assert.Equal(t, "low", storage[0].Pubkey)
	assert.Equal(t, 0.0, storage[3].StorageUtilization)

	ext := e.GetExtendedSummary(ctx)
	assert.Equal(t, 4, ext.UniqueNodes)
	assert.Equal(t, 2, ext.Tiers.Excellent)
	assert.Equal(t, 2, ext.Tiers.Poor)
	assert.Equal(t, 1, ext.StoragePressureNodes)
}

func TestVersionDistributionOf(t *testing.T) {
	list := []nodes.Node{
		{Pubkey: "1", Version: "v1"},
		{Pubkey: "2", Version: "v2"},
		{Pubkey: "3", Version: "v2"},
		{Pubkey: "4", Version: "v1"},
		{Pubkey: "5", Version: "v3"},
	}

	dist := VersionDistributionOf(list)
	require.Len(t, dist, 3)
	assert.Equal(t, VersionDistribution{Version: "v1", Count: 2, Percentage: 40, IsConsensus: true}, dist[0])
	assert.Equal(t, VersionDistribution{Version: "v2", Count: 2, Percentage: 40}, dist[1])
	assert.Equal(t, VersionDistribution{Version: "v3", Count: 1, Percentage: 20}, dist[2])
}
