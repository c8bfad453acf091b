package migration_0

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KeyValue struct {
	Key       string         `gorm:"primaryKey;size:255"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&KeyValue{}); err != nil {
		return fmt.Errorf("error creating key_values table: %w", err)
	}
	return nil
}
