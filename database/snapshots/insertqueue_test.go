package snapshots

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/database/models"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu   sync.Mutex
	rows []*models.NodeSnapshot
	fail string
}

func (w *memWriter) AddSnapshot(data *models.NodeSnapshot) error {
	if data.Pubkey == w.fail {
		return errors.New("duplicate key")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, data)
	return nil
}

func (w *memWriter) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func TestInsertQueue_DrainsInOrder(t *testing.T) {
	w := &memWriter{fail: "bad"}
	q := NewInsertQueue(w, nil)

	q.Add(&models.NodeSnapshot{Pubkey: "a"})
	q.Add(&models.NodeSnapshot{Pubkey: "bad"})
	q.Add(&models.NodeSnapshot{Pubkey: "b"})
	assert.Equal(t, 3, q.Len())

	require.NoError(t, q.Start())
	assert.Error(t, q.Start())

	require.Eventually(t, func() bool { return w.len() == 2 }, time.Second, 10*time.Millisecond)
	q.Add(&models.NodeSnapshot{Pubkey: "c"})
	require.Eventually(t, func() bool { return w.len() == 3 }, time.Second, 10*time.Millisecond)

	w.mu.Lock()
	assert.Equal(t, "a", w.rows[0].Pubkey)
	assert.Equal(t, "b", w.rows[1].Pubkey)
	assert.Equal(t, "c", w.rows[2].Pubkey)
	w.mu.Unlock()

	q.Stop()
	assert.Error(t, q.Start())
}

func TestFromNode(t *testing.T) {
	n := nodes.Node{
		Pubkey:        "abc",
		Status:        nodes.StatusOnline,
		Version:       "0.8.0",
		Address:       "1.2.3.4:9001",
		StorageUsed:   5,
		StorageTotal:  10,
		UptimeSeconds: 43200,
		Uptime:        1.67,
		LastSeen:      "2023-11-14T22:13:10.000Z",
	}
	m := analytics.ComputeNodeMetrics(n)

	s := FromNode(n, m)
	assert.Equal(t, "abc", s.Pubkey)
	assert.Equal(t, "online", s.Status)
	assert.Equal(t, "0.8.0", s.Version)
	assert.Equal(t, uint64(10), s.StorageTotal)
	assert.Equal(t, int64(43200), s.UptimeSeconds)
	assert.Equal(t, 60.0, s.HealthScore)
	assert.Equal(t, "Poor", s.Tier)
}
