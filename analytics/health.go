package analytics

import (
	"math"

	"github.com/pnode-analytics/pnodelogger/nodes"
)

type Tier string

const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierPoor      Tier = "Poor"
)

type NetworkHealth string

const (
	NetworkHealthy  NetworkHealth = "healthy"
	NetworkDegraded NetworkHealth = "degraded"
	NetworkUnstable NetworkHealth = "unstable"
)

const (
	secondsPerDay = 86400

	weightUptime  = 0.5
	weightStorage = 0.3
	weightOnline  = 0.2

	// StoragePressureThreshold is the utilization above which a node counts
	// as under storage pressure.
	StoragePressureThreshold = 80.0
)

// Uptime24h maps raw uptime seconds onto a 0-100 figure against one day.
func Uptime24h(rawUptimeSeconds int64) float64 {
	return clamp(float64(rawUptimeSeconds)/secondsPerDay*100, 0, 100)
}

// StorageUtilization is used/committed as a 2-decimal percentage, or 0 when
// capacity is unknown.
func StorageUtilization(used, committed uint64) float64 {
	if committed == 0 {
		return 0
	}
	return round2(float64(used) / float64(committed) * 100)
}

// HealthScore is the weighted composite of uptime, free storage and online
// status, rounded to 2 decimals and bounded to [0, 100].
func HealthScore(uptime24h, storageUtilization float64, online bool) float64 {
	onlineScore := 0.0
	if online {
		onlineScore = 100
	}
	score := clamp(uptime24h, 0, 100)*weightUptime +
		(100-clamp(storageUtilization, 0, 100))*weightStorage +
		onlineScore*weightOnline
	return clamp(round2(score), 0, 100)
}

func NodeTier(healthScore float64) Tier {
	switch {
	case healthScore >= 90:
		return TierExcellent
	case healthScore >= 75:
		return TierGood
	default:
		return TierPoor
	}
}

func NetworkHealthFor(onlinePercentage float64) NetworkHealth {
	switch {
	case onlinePercentage >= 95:
		return NetworkHealthy
	case onlinePercentage >= 85:
		return NetworkDegraded
	default:
		return NetworkUnstable
	}
}

// ConsensusVersion returns the most frequent version. Ties go to the version
// encountered first.
func ConsensusVersion(versions []string) string {
	counts := make(map[string]int, len(versions))
	best, bestCount := "", 0
	for _, v := range versions {
		counts[v]++
	}
	for _, v := range versions {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// ComputeNodeMetrics derives the metrics of a single normalized node.
func ComputeNodeMetrics(n nodes.Node) NodeMetrics {
	uptime := Uptime24h(n.UptimeSeconds)
	util := StorageUtilization(n.StorageUsed, n.StorageTotal)
	score := HealthScore(uptime, util, n.IsOnline())
	return NodeMetrics{
		Pubkey:             n.Pubkey,
		HealthScore:        score,
		Uptime24h:          round2(uptime),
		StorageUtilization: util,
		Tier:               NodeTier(score),
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
