package cmd

import (
	"context"
	"fmt"

	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/config"
	"github.com/pnode-analytics/pnodelogger/database"
	"github.com/pnode-analytics/pnodelogger/geo"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/pnode-analytics/pnodelogger/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

func getLogger(cfg *config.Config) (*zap.Logger, error) {

	var zcfg zap.Config

	if cfg.ProductionMode {
		zcfg = zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stdout"}
		zcfg.ErrorOutputPaths = []string{"stderr"}
		zcfg.Encoding = "console" // "console" | "json"

	} else {
		zcfg = zap.NewDevelopmentConfig()
		// Use only with console encoder (i.e. not in production)
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	zcfg.Level, err = zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("getLogger: %v", err)
	}

	return zcfg.Build()
}

func getConfigAndLogger() (*config.Config, *zap.Logger, error) {

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := getLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func getDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {

	psqlconn := database.ConnString(
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
	)

	db, err := database.Init(psqlconn)
	if err != nil {
		logger.Fatal(fmt.Sprintf("database initialization: %v", err))
	}

	return db
}

// services is built once per process and handed to whoever needs it.
type services struct {
	registry *prometheus.Registry

	remote    *cache.Remote
	cache     *cache.Fallback
	discovery *nodes.Discovery
	fetcher   *stats.Fetcher
	job       *stats.Job
	engine    *analytics.Engine
	geo       *geo.Aggregator
}

func getServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) *services {

	s := &services{registry: prometheus.NewRegistry()}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var remote cache.Store
	if cfg.RedisURL != "" {
		r, err := cache.NewRemote(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("remote cache: %v", err))
		}
		r.Start(ctx)
		s.remote = r
		remote = r
	} else {
		logger.Warn("`REDIS_URL` is empty, using the in-process cache only")
	}
	s.cache = cache.NewFallback(remote, cache.NewLocal(), logger, cache.NewMetrics(s.registry))

	dial := gossip.NewFactory()

	s.discovery = nodes.NewDiscovery(nodes.Config{
		PrimaryIP:       cfg.PRPCPrimaryIP,
		Seeds:           cfg.PRPCSeedIPs,
		Port:            cfg.PRPCPort,
		Timeout:         cfg.PRPCTimeout,
		OnlineThreshold: cfg.OnlineThreshold(),
	}, s.cache, dial, logger)

	s.fetcher = stats.NewFetcher(s.discovery, s.cache, dial, cfg.StatsRPCTimeout, cfg.StatsCacheTTL, logger)
	s.job = stats.NewJob(s.fetcher, s.discovery, stats.JobConfig{
		Interval:   cfg.StatsInterval,
		BatchSize:  cfg.StatsBatchSize,
		BatchDelay: cfg.StatsBatchDelay,
	}, logger, stats.NewMetrics(s.registry))

	s.engine = analytics.NewEngine(s.discovery, s.cache, logger)

	resolver := geo.NewIPAPIClient(cfg.GeoAPIURL, cfg.GeoTimeout, cfg.GeoRequestsPerMinute)
	s.geo = geo.NewAggregator(s.discovery, s.engine, resolver, s.cache, cfg.GeoBatchSize, logger)

	return s
}

func (s *services) Close() {
	s.job.Stop()
	if s.remote != nil {
		s.remote.Close()
	}
}
