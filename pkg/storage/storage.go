package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type KeyValue[T any] interface {
	Put(ctx context.Context, key string, obj T) error
	Get(ctx context.Context, key string) (T, error)
}

type KeyValueBroker[T any] interface {
	KeyValue(prefix string) KeyValue[T]
}
