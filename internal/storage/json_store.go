package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// JSONStore saves and loads typed values as JSON on top of a KVStore.
type JSONStore struct {
	kv KVStore
}

func NewJSONStore(kv KVStore) *JSONStore {
	return &JSONStore{kv: kv}
}

// Load returns the value stored under key. A missing, unreadable or
// unparsable value is reported as absent.
func Load[T any](ctx context.Context, s *JSONStore, key string) (T, bool) {
	var value T

	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			slog.Error("error reading persisted value", "key", key, "error", err)
		}
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("discarding corrupt persisted value", "key", key, "error", err)
		var zero T
		return zero, false
	}

	return value, true
}

func (s *JSONStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error serializing %s: %w", key, err)
	}

	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return s.kv.Close()
}
