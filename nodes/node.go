package nodes

import "net"

// Status is the online classification of a node at normalization time.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Node is the canonical representation of a pNode served by the API.
type Node struct {
	Pubkey        string  `json:"pubkey"`
	Status        Status  `json:"status"`
	Version       string  `json:"version"`
	StorageUsed   uint64  `json:"storageUsed"`
	StorageTotal  uint64  `json:"storageTotal"`
	Uptime        float64 `json:"uptime"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Address       string  `json:"address"`
	RPCPort       int     `json:"rpcPort"`
	IsPublic      bool    `json:"isPublic"`
	LastSeen      string  `json:"lastSeen"`

	// Filled from cached get-stats results at read time.
	RAMUsed  *int64 `json:"ramUsed,omitempty"`
	RAMTotal *int64 `json:"ramTotal,omitempty"`
}

func (n Node) IsOnline() bool {
	return n.Status == StatusOnline
}

// Online returns the subset of list currently classified online.
func Online(list []Node) []Node {
	out := make([]Node, 0, len(list))
	for _, n := range list {
		if n.IsOnline() {
			out = append(out, n)
		}
	}
	return out
}

// Dedup keeps the first node seen for each pubkey.
func Dedup(list []Node) []Node {
	seen := make(map[string]struct{}, len(list))
	out := make([]Node, 0, len(list))
	for _, n := range list {
		if _, ok := seen[n.Pubkey]; ok {
			continue
		}
		seen[n.Pubkey] = struct{}{}
		out = append(out, n)
	}
	return out
}

// IP returns the host part of the node's address, or the address itself when
// it carries no port.
func (n Node) IP() string {
	host, _, err := net.SplitHostPort(n.Address)
	if err != nil {
		return n.Address
	}
	return host
}
