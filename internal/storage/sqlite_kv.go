package storage

import (
	"context"
	"errors"

	"imagechat/internal/database"

	"gorm.io/gorm"
)

type SQLiteKVStore struct {
	db *gorm.DB
}

var _ KVStore = (*SQLiteKVStore)(nil)

func NewSQLiteKVStore(path string) (*SQLiteKVStore, error) {
	db, err := database.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteKVStore{db: db}, nil
}

func (s *SQLiteKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := database.GetValue(ctx, s.db, key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (s *SQLiteKVStore) Put(ctx context.Context, key string, value []byte) error {
	return database.PutValue(ctx, s.db, key, value)
}

func (s *SQLiteKVStore) Close() error {
	return database.Close(s.db)
}
