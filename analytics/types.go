package analytics

import "time"

type NodeMetrics struct {
	Pubkey             string  `json:"pubkey"`
	HealthScore        float64 `json:"healthScore"`
	Uptime24h          float64 `json:"uptime24h"`
	StorageUtilization float64 `json:"storageUtilization"`
	Tier               Tier    `json:"tier"`
}

// AnalyticsSummary is computed over the raw gossip records.
type AnalyticsSummary struct {
	TotalNodes            int           `json:"totalNodes"`
	OnlineNodes           int           `json:"onlineNodes"`
	OfflineNodes          int           `json:"offlineNodes"`
	OnlinePercentage      float64       `json:"onlinePercentage"`
	TotalStorageCommitted uint64        `json:"totalStorageCommitted"`
	TotalStorageUsed      uint64        `json:"totalStorageUsed"`
	StorageUtilization    float64       `json:"storageUtilization"`
	AverageUptime24h      float64       `json:"averageUptime24h"`
	ConsensusVersion      string        `json:"consensusVersion"`
	NetworkHealth         NetworkHealth `json:"networkHealth"`
}

type TierCounts struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Poor      int `json:"poor"`
}

// ExtendedSummary adds node-metric aggregates to the summary.
type ExtendedSummary struct {
	AnalyticsSummary
	UniqueNodes          int        `json:"uniqueNodes"`
	PublicNodes          int        `json:"publicNodes"`
	AverageHealthScore   float64    `json:"averageHealthScore"`
	Tiers                TierCounts `json:"tiers"`
	VersionCount         int        `json:"versionCount"`
	ConsensusPercentage  float64    `json:"consensusPercentage"`
	StoragePressureNodes int        `json:"storagePressureNodes"`
	GeneratedAt          time.Time  `json:"generatedAt"`
}

type TopNode struct {
	NodeMetrics
	Address      string `json:"address"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	StorageUsed  uint64 `json:"storageUsed"`
	StorageTotal uint64 `json:"storageTotal"`
}

type StoragePressure struct {
	TotalNodes    int           `json:"totalNodes"`
	PressureNodes int           `json:"pressureNodes"`
	Fraction      float64       `json:"fraction"`
	Percentage    float64       `json:"percentage"`
	Threshold     float64       `json:"threshold"`
	Nodes         []NodeMetrics `json:"nodes"`
}

type VersionDistribution struct {
	Version     string  `json:"version"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
	IsConsensus bool    `json:"isConsensus"`
}

type StorageAnalytics struct {
	Pubkey             string  `json:"pubkey"`
	Address            string  `json:"address"`
	StorageUsed        uint64  `json:"storageUsed"`
	StorageTotal       uint64  `json:"storageTotal"`
	StorageUtilization float64 `json:"storageUtilization"`
	Status             string  `json:"status"`
}
