package snapshots

import (
	"github.com/pnode-analytics/pnodelogger/analytics"
	"github.com/pnode-analytics/pnodelogger/database/models"
	"github.com/pnode-analytics/pnodelogger/nodes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Snapshots stores the history of node states in postgres.
type Snapshots struct {
	db          *gorm.DB
	InsertQueue *InsertQueue
}

const defaultLimit = 100

func New(db *gorm.DB, logger *zap.Logger) *Snapshots {
	s := &Snapshots{
		db: db,
	}
	s.InsertQueue = NewInsertQueue(s, logger)
	return s
}

// FromNode builds the history row of a node and its metrics.
func FromNode(n nodes.Node, m analytics.NodeMetrics) *models.NodeSnapshot {
	return &models.NodeSnapshot{
		Pubkey:        n.Pubkey,
		Address:       n.Address,
		Status:        string(n.Status),
		Version:       n.Version,
		StorageUsed:   n.StorageUsed,
		StorageTotal:  n.StorageTotal,
		UptimeSeconds: n.UptimeSeconds,
		Uptime:        n.Uptime,
		HealthScore:   m.HealthScore,
		Tier:          string(m.Tier),
		LastSeen:      n.LastSeen,
	}
}

func (s *Snapshots) AddSnapshot(data *models.NodeSnapshot) error {
	tx := s.db.Create(data)
	return tx.Error
}

// FindByPubkey returns one page of a node's history, newest first, and the
// total number of rows.
func (s *Snapshots) FindByPubkey(pubkey string, offset, limit int) ([]models.NodeSnapshot, int64, error) {

	var res []models.NodeSnapshot

	var count int64
	if limit == 0 {
		limit = defaultLimit
	}
	tx := s.db.Model(&models.NodeSnapshot{}).Where(&models.NodeSnapshot{Pubkey: pubkey}).Count(&count)
	if tx.Error != nil {
		return res, count, tx.Error
	}

	tx = s.db.Offset(offset).Limit(limit).
		Where(&models.NodeSnapshot{Pubkey: pubkey}).
		Order(clause.OrderByColumn{
			Column: clause.Column{Name: "created_at"},
			Desc:   true,
		}).Find(&res)
	return res, count, tx.Error
}
