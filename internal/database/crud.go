package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

var ErrNotFound = errors.New("key not found")

func GetValue(ctx context.Context, db *gorm.DB, key string) ([]byte, error) {
	var kv KeyValue
	if err := db.WithContext(ctx).First(&kv, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading key %s: %w", key, err)
	}
	return kv.Value, nil
}

func PutValue(ctx context.Context, db *gorm.DB, key string, value []byte) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	kv := KeyValue{Key: key, Value: value, Size: int64(len(value)), UpdatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "size", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("error saving key %s: %w", key, err)
	}
	return nil
}
