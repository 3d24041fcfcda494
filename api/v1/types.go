package api

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/database/models"
	"github.com/pnode-analytics/pnodelogger/geo"
	"github.com/pnode-analytics/pnodelogger/gossip"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type NodeService interface {
	GetAllNodes(ctx context.Context) []nodes.Node
	GetNodeByPubkey(ctx context.Context, pubkey string) (nodes.Node, bool)
	Refresh(ctx context.Context) []nodes.Node
}

type StatsService interface {
	GetNodeStats(ctx context.Context, pubkey string) (*gossip.NodeStats, bool)
}

type AnalyticsService interface {
	GetSummary(ctx context.Context) analytics.AnalyticsSummary
	GetExtendedSummary(ctx context.Context) analytics.ExtendedSummary
	GetNodeMetrics(ctx context.Context) []analytics.NodeMetrics
	GetTopNodes(ctx context.Context, n int) []analytics.TopNode
	GetStoragePressure(ctx context.Context) analytics.StoragePressure
	GetVersionDistribution(ctx context.Context) []analytics.VersionDistribution
	GetStorageAnalytics(ctx context.Context) []analytics.StorageAnalytics
}

type GeoService interface {
	GetMapNodes(ctx context.Context) []geo.MapNode
	GetGeoSummary(ctx context.Context) geo.GeoSummary
	GetCountryChoropleth(ctx context.Context) geo.CountryChoropleth
}

type HistoryService interface {
	FindByPubkey(pubkey string, offset, limit int) ([]models.NodeSnapshot, int64, error)
	GetVersionHistory(pubkey string) ([]models.NodeVersion, error)
}

// Deps are the services behind the API. History and Gatherer are optional.
type Deps struct {
	Nodes     NodeService
	Stats     StatsService
	Analytics AnalyticsService
	Geo       GeoService
	History   HistoryService
	Gatherer  prometheus.Gatherer
}

type RESTApiV1 struct {
	router *mux.Router
	logger *zap.Logger

	nodes     NodeService
	stats     StatsService
	analytics AnalyticsService
	geo       GeoService
	history   HistoryService

	rowsPerPage uint64
}

type Pagination struct {
	CurrentPage uint64 `json:"current_page"`
	TotalPages  uint64 `json:"total_pages"`
	TotalRows   uint64 `json:"total_rows"`
}

type LimitOffset struct {
	Limit  uint64
	Offset uint64
	Page   uint64
}
