package models

import (
	"time"

	"gorm.io/gorm"
)

type NodeSnapshot struct {
	gorm.Model
	Pubkey        string `gorm:"index;type:varchar(255);not null"`
	Address       string `gorm:"type:varchar(255)"`
	Status        string `gorm:"type:varchar(16)"`
	Version       string `gorm:"type:varchar(64)"`
	StorageUsed   uint64
	StorageTotal  uint64
	UptimeSeconds int64
	Uptime        float64
	HealthScore   float64 `gorm:"index;"`
	Tier          string  `gorm:"type:varchar(16)"`
	LastSeen      string
}

type NodeVersion struct {
	Pubkey    string    `json:"pubkey"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}
