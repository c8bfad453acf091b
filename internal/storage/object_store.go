package storage

import (
	"context"
	"io"
)

type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	// DeleteObjects removes every object under the given prefix.
	DeleteObjects(ctx context.Context, prefix string) error
}
