package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval   = 90 * time.Second
	DefaultBatchSize  = 15
	DefaultBatchDelay = 100 * time.Millisecond
)

// State of the enrichment job. Only Idle -> Running is triggered from
// outside; Running -> Idle happens when a run returns.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type JobConfig struct {
	Interval   time.Duration
	BatchSize  int
	BatchDelay time.Duration
}

// RunReport summarizes one RunOnce call.
type RunReport struct {
	Rejected bool          `json:"rejected"`
	Nodes    int           `json:"nodes"`
	Batches  int           `json:"batches"`
	Warm     int           `json:"warm"`
	Fetched  int           `json:"fetched"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Job periodically warms the per-node stats cache so the request path never
// has to wait on per-node RPCs.
type Job struct {
	fetcher *Fetcher
	source  NodeSource
	cfg     JobConfig
	logger  *zap.Logger
	metrics *Metrics

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJob(fetcher *Fetcher, source NodeSource, cfg JobConfig, logger *zap.Logger, metrics *Metrics) *Job {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Job{
		fetcher: fetcher,
		source:  source,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

func (j *Job) State() State {
	return State(j.state.Load())
}

// RunOnce fetches stats for every online node. A call made while another run
// is in flight returns immediately with Rejected set.
func (j *Job) RunOnce(ctx context.Context) RunReport {
	if !j.state.CompareAndSwap(int32(Idle), int32(Running)) {
		j.logger.Debug("stats job: previous run still in progress, skipping")
		j.metrics.Runs.WithLabelValues("rejected").Inc()
		return RunReport{Rejected: true}
	}
	defer j.state.Store(int32(Idle))

	start := time.Now()
	online := nodes.Online(j.source.GetAllNodes(ctx))
	batches := chunk(online, j.cfg.BatchSize)

	var warm, fetched, skipped, failed atomic.Int64
	for i, batch := range batches {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(j.cfg.BatchDelay):
			}
		}
		if ctx.Err() != nil {
			break
		}

		var g errgroup.Group
		for _, n := range batch {
			n := n
			g.Go(func() error {
				if _, ok := j.fetcher.Cached(ctx, n.Pubkey); ok {
					warm.Add(1)
					return nil
				}
				_, err := j.fetcher.Fetch(ctx, n)
				switch {
				case err == nil:
					fetched.Add(1)
				case errors.Is(err, ErrNodeUnavailable):
					skipped.Add(1)
				default:
					failed.Add(1)
					gossip.LogFailure(j.logger, fmt.Sprintf("stats job: %s (%s)", n.Address, n.Pubkey), err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	report := RunReport{
		Nodes:    len(online),
		Batches:  len(batches),
		Warm:     int(warm.Load()),
		Fetched:  int(fetched.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	j.metrics.observe(report)
	j.logger.Info(fmt.Sprintf("stats job: %d online nodes, %d fetched, %d warm, %d failed in %v",
		report.Nodes, report.Fetched, report.Warm, report.Failed, report.Duration.Round(time.Millisecond)))
	return report
}

// Start runs the job now and then every Interval until Stop or ctx ends.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(j.cfg.Interval)
		defer ticker.Stop()

		j.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce(ctx)
			}
		}
	}(j.done)

	j.logger.Info(fmt.Sprintf("stats job: scheduled every %v", j.cfg.Interval))
}

// Stop cancels the schedule and any run in flight.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel = nil
}

func chunk(list []nodes.Node, size int) [][]nodes.Node {
	var out [][]nodes.Node
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		out = append(out, list[start:end])
	}
	return out
}
