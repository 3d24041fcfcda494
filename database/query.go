package database

import (
	"gorm.io/gorm"
)

func Query(db *gorm.DB, SQL string, rows interface{}, args ...interface{}) error {
	return db.Raw(SQL, args...).Scan(rows).Error
}
