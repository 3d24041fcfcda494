package geo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/cache"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = MaxBatchSize
	LocationTTL      = 24 * time.Hour

	topCountries  = 10
	parallelCalls = 2
)

type NodeSource interface {
	GetAllNodes(ctx context.Context) []nodes.Node
	GetAllNodesForMap(ctx context.Context) []nodes.Node
}

type MetricsSource interface {
	MetricsByPubkey(ctx context.Context) map[string]analytics.NodeMetrics
}

// Aggregator joins nodes with their location and health metrics.
type Aggregator struct {
	nodes     NodeSource
	metrics   MetricsSource
	resolver  Resolver
	cache     cache.Cache
	batchSize int
	logger    *zap.Logger
}

func NewAggregator(ns NodeSource, ms MetricsSource, resolver Resolver, c cache.Cache, batchSize int, logger *zap.Logger) *Aggregator {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		nodes:     ns,
		metrics:   ms,
		resolver:  resolver,
		cache:     c,
		batchSize: batchSize,
		logger:    logger,
	}
}

func locationKey(ip string) string {
	return cache.Key(cache.PrefixGeo, ip)
}

// GetMapNodes returns deduplicated nodes with a resolved location. Nodes
// whose address cannot be resolved are left out.
func (a *Aggregator) GetMapNodes(ctx context.Context) []MapNode {
	list := a.nodes.GetAllNodes(ctx)
	metrics := a.metrics.MetricsByPubkey(ctx)
	return a.join(ctx, list, metrics)
}

func (a *Aggregator) join(ctx context.Context, list []nodes.Node, metrics map[string]analytics.NodeMetrics) []MapNode {
	ips := make([]string, 0, len(list))
	for _, n := range list {
		ips = append(ips, n.IP())
	}
	locations := a.Resolve(ctx, ips)

	out := make([]MapNode, 0, len(list))
	for _, n := range list {
		ip := n.IP()
		loc, ok := locations[ip]
		if !ok {
			continue
		}
		m, ok := metrics[n.Pubkey]
		if !ok {
			m = analytics.ComputeNodeMetrics(n)
		}
		out = append(out, MapNode{
			Pubkey:             n.Pubkey,
			Address:            n.Address,
			IP:                 ip,
			Status:             string(n.Status),
			Version:            n.Version,
			Private:            IsPrivate(ip),
			Location:           loc,
			HealthScore:        m.HealthScore,
			Uptime24h:          m.Uptime24h,
			StorageUtilization: m.StorageUtilization,
			Tier:               m.Tier,
		})
	}
	return out
}

// Resolve locates every distinct ip. Private addresses get PrivateLocation,
// public ones come from the cache or from batched resolver calls. Addresses
// that could not be resolved, hostnames and empty strings included, are
// absent from the result.
func (a *Aggregator) Resolve(ctx context.Context, ips []string) map[string]Location {
	out := make(map[string]Location, len(ips))
	var pending []string
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}

		if !isIP(ip) {
			continue
		}
		if IsPrivate(ip) {
			out[ip] = PrivateLocation
			continue
		}
		if loc, ok := cache.GetJSON[Location](ctx, a.cache, locationKey(ip)); ok {
			out[ip] = loc
			continue
		}
		pending = append(pending, ip)
	}
	if len(pending) == 0 {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelCalls)
	for start := 0; start < len(pending); start += a.batchSize {
		batch := pending[start:min(start+a.batchSize, len(pending))]
		g.Go(func() error {
			resolved, err := a.resolver.LookupBatch(gctx, batch)
			if err != nil {
				a.logger.Warn(fmt.Sprintf("geo: batch of %d: %v", len(batch), err))
				return nil
			}
			for ip, loc := range resolved {
				if err := cache.SetJSON(gctx, a.cache, locationKey(ip), loc, LocationTTL); err != nil {
					a.logger.Error(fmt.Sprintf("geo: cache %s: %v", ip, err))
				}
			}
			mu.Lock()
			for ip, loc := range resolved {
				out[ip] = loc
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	unresolved := 0
	for _, ip := range pending {
		if _, ok := out[ip]; !ok {
			unresolved++
		}
	}
	if unresolved > 0 {
		a.logger.Debug(fmt.Sprintf("geo: %d of %d addresses unresolved", unresolved, len(pending)))
	}
	return out
}

// GetGeoSummary counts locations over every known endpoint.
func (a *Aggregator) GetGeoSummary(ctx context.Context) GeoSummary {
	list := a.nodes.GetAllNodesForMap(ctx)
	ips := make([]string, 0, len(list))
	for _, n := range list {
		ips = append(ips, n.IP())
	}
	locations := a.Resolve(ctx, ips)

	s := GeoSummary{TotalEndpoints: len(list), TopCountries: []CountryCount{}}
	counts := map[string]*CountryCount{}
	var order []string
	cities := map[string]struct{}{}
	for _, n := range list {
		ip := n.IP()
		loc, ok := locations[ip]
		if !ok {
			s.Unresolved++
			continue
		}
		s.Resolved++
		if IsPrivate(ip) {
			s.Private++
			continue
		}
		c, ok := counts[loc.CountryCode]
		if !ok {
			c = &CountryCount{Country: loc.Country, CountryCode: loc.CountryCode}
			counts[loc.CountryCode] = c
			order = append(order, loc.CountryCode)
		}
		c.Count++
		if loc.City != "" {
			cities[loc.CountryCode+"/"+loc.City] = struct{}{}
		}
	}

	s.Countries = len(counts)
	s.Cities = len(cities)
	for _, code := range order {
		s.TopCountries = append(s.TopCountries, *counts[code])
	}
	sort.SliceStable(s.TopCountries, func(i, j int) bool {
		return s.TopCountries[i].Count > s.TopCountries[j].Count
	})
	if len(s.TopCountries) > topCountries {
		s.TopCountries = s.TopCountries[:topCountries]
	}
	return s
}

// GetCountryChoropleth aggregates map nodes per country, largest first.
// Private addresses are not attributed to any country.
func (a *Aggregator) GetCountryChoropleth(ctx context.Context) CountryChoropleth {
	return Choropleth(a.GetMapNodes(ctx))
}

func Choropleth(list []MapNode) CountryChoropleth {
	type acc struct {
		stats                CountryStats
		health, uptime, util float64
	}
	byCode := map[string]*acc{}
	var order []string
	for _, n := range list {
		if n.Private {
			continue
		}
		c, ok := byCode[n.CountryCode]
		if !ok {
			c = &acc{stats: CountryStats{Country: n.Country, CountryCode: n.CountryCode}}
			byCode[n.CountryCode] = c
			order = append(order, n.CountryCode)
		}
		c.stats.NodeCount++
		if n.Status == string(nodes.StatusOnline) {
			c.stats.OnlineCount++
		} else {
			c.stats.OfflineCount++
		}
		c.health += n.HealthScore
		c.uptime += n.Uptime24h
		c.util += n.StorageUtilization
	}

	out := CountryChoropleth{Countries: make([]CountryStats, 0, len(order))}
	for _, code := range order {
		c := byCode[code]
		count := float64(c.stats.NodeCount)
		c.stats.AvgHealthScore = round1(c.health / count)
		c.stats.AvgUptime24h = round1(c.uptime / count)
		c.stats.AvgStorageUtilization = round1(c.util / count)
		out.Countries = append(out.Countries, c.stats)
	}
	sort.SliceStable(out.Countries, func(i, j int) bool {
		return out.Countries[i].NodeCount > out.Countries[j].NodeCount
	})
	out.TotalCountries = len(out.Countries)
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
