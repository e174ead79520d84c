package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"

	"github.com/otelfleet/pkghooks/pkg/storage"
)

// Open opens (creating if needed) the pebble store at dir. A nil fs means
// the host filesystem.
func Open(dir string, fs vfs.FS) (*pebble.DB, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("opening state store %s: %w", dir, err)
	}
	return db, nil
}

type KeyValueBroker[T any] struct {
	db *pebble.DB
}

func NewPebbleBroker[T any](db *pebble.DB) *KeyValueBroker[T] {
	return &KeyValueBroker[T]{
		db: db,
	}
}

func (k *KeyValueBroker[T]) KeyValue(prefix string) storage.KeyValue[T] {
	return k.newPrefixedKeyValue(prefix)
}

func (k *KeyValueBroker[T]) newPrefixedKeyValue(prefix string) *prefixedKeyValue[T] {
	return &prefixedKeyValue[T]{
		db:     k.db,
		prefix: []byte(prefix),
	}
}

type prefixedKeyValue[T any] struct {
	prefix []byte
	db     *pebble.DB
}

func (k *prefixedKeyValue[T]) key(key string) []byte {
	fullKey := make([]byte, len(k.prefix)+len(key)+1)
	copy(fullKey, k.prefix)
	fullKey[len(k.prefix)] = '/'
	copy(fullKey[len(k.prefix)+1:], key)
	return fullKey
}

// Put writes synchronously: hooks exit right after, and the record must
// survive a power loss once the hook reports success.
func (k *prefixedKeyValue[T]) Put(_ context.Context, key string, value T) error {
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return k.db.Set(k.key(key), v, pebble.Sync)
}

func (k *prefixedKeyValue[T]) Get(_ context.Context, key string) (T, error) {
	var t T
	data, closer, err := k.db.Get(k.key(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return t, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return t, err
	}
	defer closer.Close()
	if err := json.Unmarshal(data, &t); err != nil {
		return t, err
	}
	return t, nil
}

var _ storage.KeyValue[any] = (*prefixedKeyValue[any])(nil)
var _ storage.KeyValueBroker[any] = (*KeyValueBroker[any])(nil)
