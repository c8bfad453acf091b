package database

import (
	"time"

	"gorm.io/datatypes"
)

// KeyValue holds one named JSON collection, e.g. the config list or the session list.
type KeyValue struct {
	Key       string         `gorm:"primaryKey;size:255"`
	Value     datatypes.JSON `gorm:"not null"`
	Size      int64          `gorm:"default:0"`
	UpdatedAt time.Time
}
