package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSource struct {
	list    []nodes.Node
	block   chan struct{}
	entered chan struct{}
}

func (s *fakeSource) GetAllNodes(ctx context.Context) []nodes.Node {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	return s.list
}

func (s *fakeSource) GetNodeByPubkey(ctx context.Context, pubkey string) (nodes.Node, bool) {
	for _, n := range s.list {
		if n.Pubkey == pubkey {
			return n, true
		}
	}
	return nodes.Node{}, false
}

type statsClient struct {
	ip    string
	calls *atomic.Int64
	fail  map[string]error
}

func (c statsClient) GetPods(context.Context) (*gossip.PodsResponse, error) {
	return nil, errors.New("not used")
}

func (c statsClient) GetPodsWithStats(context.Context) (*gossip.PodsResponse, error) {
	return nil, errors.New("not used")
}

func (c statsClient) GetStats(context.Context) (*gossip.NodeStats, error) {
	c.calls.Add(1)
	if err, ok := c.fail[c.ip]; ok {
		return nil, err
	}
	return &gossip.NodeStats{RAMUsed: 1, RAMTotal: 2}, nil
}

func statsFactory(calls *atomic.Int64, fail map[string]error) gossip.Factory {
	return func(ip string, port int, timeout time.Duration) gossip.API {
		return statsClient{ip: ip, calls: calls, fail: fail}
	}
}

func onlineNode(i int) nodes.Node {
	return nodes.Node{
		Pubkey:  fmt.Sprintf("pk-%02d", i),
		Status:  nodes.StatusOnline,
		Address: fmt.Sprintf("10.0.0.%d:9001", i),
		RPCPort: 6000,
	}
}

func TestJob_RunOnceBatchesAndCounts(t *testing.T) {
	var list []nodes.Node
	for i := 1; i <= 20; i++ {
		list = append(list, onlineNode(i))
	}
	offline := onlineNode(21)
	offline.Status = nodes.StatusOffline
	list = append(list, offline)

	c := cache.NewFallback(nil, nil, nil, nil)
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, c, cache.NodeStatsKey("pk-01"), gossip.NodeStats{RAMUsed: 9}, time.Minute))

	var calls atomic.Int64
	fail := map[string]error{
		"10.0.0.2": errors.New("dial tcp: connect: connection refused"),
		"10.0.0.3": errors.New("decode result: unexpected token"),
	}
	source := &fakeSource{list: list}
	fetcher := NewFetcher(source, c, statsFactory(&calls, fail), time.Second, time.Minute, nil)
	metrics := NewMetrics(prometheus.NewRegistry())
	job := NewJob(fetcher, source, JobConfig{BatchSize: 15, BatchDelay: time.Millisecond}, nil, metrics)

	report := job.RunOnce(ctx)
	assert.False(t, report.Rejected)
	assert.Equal(t, 20, report.Nodes)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 1, report.Warm)
	assert.Equal(t, 17, report.Fetched)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, int64(19), calls.Load())
	assert.Equal(t, Idle, job.State())

	_, ok := fetcher.Cached(ctx, "pk-20")
	assert.True(t, ok)
	_, ok = fetcher.Cached(ctx, "pk-02")
	assert.False(t, ok)
	_, ok = fetcher.Cached(ctx, "pk-21")
	assert.False(t, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Fetches.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("completed")))

	second := job.RunOnce(ctx)
	assert.Equal(t, 18, second.Warm)
	assert.Equal(t, 2, second.Failed)
}

func TestJob_RunOnceLogLevels(t *testing.T) {
	source := &fakeSource{list: []nodes.Node{onlineNode(1), onlineNode(2)}}
	var calls atomic.Int64
	fail := map[string]error{
		"10.0.0.1": errors.New("dial tcp 10.0.0.1:6000: connect: connection refused"),
		"10.0.0.2": errors.New("decode result: unexpected token"),
	}
	core, logs := observer.New(zapcore.DebugLevel)
	fetcher := NewFetcher(source, cache.NewFallback(nil, nil, nil, nil), statsFactory(&calls, fail), time.Second, time.Minute, nil)
	job := NewJob(fetcher, source, JobConfig{}, zap.New(core), nil)

	report := job.RunOnce(context.Background())
	assert.Equal(t, 2, report.Failed)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "10.0.0.2")

	refused := logs.FilterLevelExact(zapcore.DebugLevel).FilterMessageSnippet("10.0.0.1").All()
	assert.Len(t, refused, 1)
}

func TestJob_RunOnceIsNotReentrant(t *testing.T) {
	source := &fakeSource{
		list:    []nodes.Node{onlineNode(1)},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	var calls atomic.Int64
	fetcher := NewFetcher(source, cache.NewFallback(nil, nil, nil, nil), statsFactory(&calls, nil), time.Second, time.Minute, nil)
	job := NewJob(fetcher, source, JobConfig{}, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var first RunReport
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = job.RunOnce(ctx)
	}()

	<-source.entered
	assert.Equal(t, Running, job.State())

	rejected := job.RunOnce(ctx)
	assert.True(t, rejected.Rejected)

	close(source.block)
	wg.Wait()

	assert.False(t, first.Rejected)
	assert.Equal(t, 1, first.Fetched)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, Idle, job.State())
}

func TestJob_StartRunsImmediatelyAndStops(t *testing.T) {
	source := &fakeSource{list: []nodes.Node{onlineNode(1)}}
	var calls atomic.Int64
	fetcher := NewFetcher(source, cache.NewFallback(nil, nil, nil, nil), statsFactory(&calls, nil), time.Second, time.Minute, nil)
	job := NewJob(fetcher, source, JobConfig{Interval: time.Hour}, nil, nil)

	job.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	job.Stop()
	job.Stop()
	assert.Equal(t, Idle, job.State())
}

func TestFetcher_GetNodeStats(t *testing.T) {
	offline := onlineNode(2)
	offline.Status = nodes.StatusOffline
	noAddr := onlineNode(3)
	noAddr.Address = ""
	source := &fakeSource{list: []nodes.Node{onlineNode(1), offline, noAddr}}

	var calls atomic.Int64
	fetcher := NewFetcher(source, cache.NewFallback(nil, nil, nil, nil), statsFactory(&calls, nil), 0, 0, nil)
	ctx := context.Background()

	st, ok := fetcher.GetNodeStats(ctx, "pk-01")
	require.True(t, ok)
	assert.Equal(t, int64(2), st.RAMTotal)

	_, ok = fetcher.GetNodeStats(ctx, "pk-01")
	require.True(t, ok)
	assert.Equal(t, int64(1), calls.Load())

	_, ok = fetcher.GetNodeStats(ctx, "pk-02")
	assert.False(t, ok)
	_, ok = fetcher.GetNodeStats(ctx, "pk-03")
	assert.False(t, ok)
	_, ok = fetcher.GetNodeStats(ctx, "unknown")
	assert.False(t, ok)
	assert.Equal(t, int64(1), calls.Load())

	_, err := fetcher.Fetch(ctx, offline)
	assert.ErrorIs(t, err, ErrNodeUnavailable)
}

func TestChunk(t *testing.T) {
	var list []nodes.Node
	for i := 0; i < 31; i++ {
		list = append(list, onlineNode(i))
	}
	batches := chunk(list, 15)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 15)
	assert.Len(t, batches[2], 1)
	assert.Empty(t, chunk(nil, 15))
}
