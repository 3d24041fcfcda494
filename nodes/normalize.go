package nodes

import (
	"fmt"
	"math"
	"time"

	"github.com/pnode-analytics/pnodelogger/gossip"
)

const (
	DefaultOnlineThreshold = 300 * time.Second

	// Raw uptimes above this are treated as seconds, anything at or below as
	// an already normalized percentage.
	uptimePercentCeiling = 100
	uptimeWindowSeconds  = 30 * 24 * 60 * 60

	isoMillis = "2006-01-02T15:04:05.000Z"
)

// Normalize maps a raw gossip record to a Node. It is a pure function of its
// inputs. A record with an empty pubkey is still normalized; callers filter it.
func Normalize(pod gossip.Pod, now time.Time, threshold time.Duration) (Node, error) {
	if pod.StorageUsed < 0 {
		return Node{}, fmt.Errorf("pod %q: negative storage_used %d", pod.Address, pod.StorageUsed)
	}
	if pod.StorageCommitted < 0 {
		return Node{}, fmt.Errorf("pod %q: negative storage_committed %d", pod.Address, pod.StorageCommitted)
	}
	if math.IsNaN(pod.StorageUsagePercent) || math.IsInf(pod.StorageUsagePercent, 0) {
		return Node{}, fmt.Errorf("pod %q: invalid storage_usage_percent", pod.Address)
	}
	if pod.LastSeenTimestamp < 0 {
		return Node{}, fmt.Errorf("pod %q: negative last_seen_timestamp %d", pod.Address, pod.LastSeenTimestamp)
	}
	if threshold <= 0 {
		threshold = DefaultOnlineThreshold
	}

	status := StatusOffline
	if IsOnlineAt(pod.LastSeenTimestamp, now, threshold) {
		status = StatusOnline
	}

	return Node{
		Pubkey:        pod.Pubkey,
		Status:        status,
		Version:       pod.Version,
		StorageUsed:   uint64(pod.StorageUsed),
		StorageTotal:  StorageTotal(pod),
		Uptime:        NormalizeUptime(pod.Uptime),
		UptimeSeconds: pod.Uptime,
		Address:       pod.Address,
		RPCPort:       pod.RpcPort,
		IsPublic:      pod.IsPublic,
		LastSeen:      time.UnixMilli(pod.LastSeenTimestamp * 1000).UTC().Format(isoMillis),
	}, nil
}

// IsOnlineAt reports whether a node last seen at lastSeenUnix is online at now.
func IsOnlineAt(lastSeenUnix int64, now time.Time, threshold time.Duration) bool {
	return now.Unix()-lastSeenUnix <= int64(threshold/time.Second)
}

// StorageTotal resolves the capacity of a pod: the committed figure when
// positive, otherwise back-computed from the usage percentage, otherwise 0.
func StorageTotal(pod gossip.Pod) uint64 {
	if pod.StorageCommitted > 0 {
		return uint64(pod.StorageCommitted)
	}
	pct := pod.StorageUsagePercent
	if pct > 0 && pct <= 100 && pod.StorageUsed > 0 {
		return uint64(math.Round(float64(pod.StorageUsed) / (pct / 100)))
	}
	return 0
}

// NormalizeUptime turns a raw uptime into a 0-100 figure. Values above 100
// are seconds scaled against a 30 day window; values at or below 100 pass
// through unchanged.
//
// NOTE: ambiguous for nodes with 1-100 seconds of real uptime, which are
// read as a percentage.
func NormalizeUptime(raw int64) float64 {
	if raw < 0 {
		return 0
	}
	if raw > uptimePercentCeiling {
		return clamp(float64(raw)/uptimeWindowSeconds*100, 0, 100)
	}
	return float64(raw)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
