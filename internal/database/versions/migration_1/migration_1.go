package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type KeyValue struct {
	Size int64 `gorm:"default:0"`
}

// Migration adds the size column used to report how large each stored collection is.
func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&KeyValue{}, "size"); err != nil {
		return fmt.Errorf("error adding Size column: %w", err)
	}

	if err := db.Model(&KeyValue{}).
		Where("size IS NULL").
		Update("size", 0).Error; err != nil {
		return fmt.Errorf("error setting default value for Size: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&KeyValue{}, "size"); err != nil {
		return fmt.Errorf("error dropping Size column: %w", err)
	}

	return nil
}
