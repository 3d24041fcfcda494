package gossip

import (
	"encoding/json"
	"fmt"
)

// pRPC method names
const (
	MethodGetPods          = "get-pods"
	MethodGetPodsWithStats = "get-pods-with-stats"
	MethodGetStats         = "get-stats"
)

// JSON-RPC 2.0 request
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

// JSON-RPC 2.0 response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSON-RPC 2.0 error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// PodsResponse is the result of get-pods and get-pods-with-stats.
type PodsResponse struct {
	Pods       []Pod `json:"pods"`
	TotalCount int   `json:"total_count"`
}

// Pod is a pNode as seen by the gossip network. The storage and uptime
// fields are only filled by get-pods-with-stats.
type Pod struct {
	Address             string  `json:"address"`
	RpcPort             int     `json:"rpc_port"`
	IsPublic            bool    `json:"is_public"`
	Version             string  `json:"version"`
	LastSeen            string  `json:"last_seen,omitempty"`
	LastSeenTimestamp   int64   `json:"last_seen_timestamp"`
	Pubkey              string  `json:"pubkey"`
	StorageCommitted    int64   `json:"storage_committed"`
	StorageUsed         int64   `json:"storage_used"`
	StorageUsagePercent float64 `json:"storage_usage_percent"`
	Uptime              int64   `json:"uptime"`
}

// NodeStats is the result of get-stats issued against a node's own pRPC endpoint.
type NodeStats struct {
	ActiveStreams   int     `json:"active_streams"`
	CPUPercent      float64 `json:"cpu_percent"`
	CurrentIndex    int64   `json:"current_index"`
	FileSize        int64   `json:"file_size"`
	LastUpdated     int64   `json:"last_updated"`
	PacketsReceived int64   `json:"packets_received"`
	PacketsSent     int64   `json:"packets_sent"`
	RAMTotal        int64   `json:"ram_total"`
	RAMUsed         int64   `json:"ram_used"`
	TotalBytes      int64   `json:"total_bytes"`
	TotalPages      int     `json:"total_pages"`
	Uptime          int64   `json:"uptime"`
}
