package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrKeyNotFound = errors.New("key not found")

// KVStore persists whole values under string keys. Put always overwrites the
// full value.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)

	Put(ctx context.Context, key string, value []byte) error

	Close() error
}

type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
)

type KVConfig struct {
	Driver Driver
	// Dir is the data directory used by the file driver.
	Dir string
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string
	RedisURL   string
}

func NewKVStore(ctx context.Context, cfg KVConfig) (KVStore, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewLocalKVStore(cfg.Dir)
	case DriverSQLite:
		return NewSQLiteKVStore(cfg.SQLitePath)
	case DriverRedis:
		return NewRedisKVStore(ctx, cfg.RedisURL)
	case DriverMemory:
		return NewMemoryKVStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ KVStore = (*MemoryKVStore)(nil)

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string][]byte)}
}

func (s *MemoryKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryKVStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryKVStore) Close() error {
	return nil
}
