// Package state holds in-memory values that are hydrated from the key-value
// store once at startup and written back after every mutation.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kevinaaaquil/lexireader/store"
)

// PersistError reports that a mutation was applied in memory but could not be
// written to durable storage.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err carries a PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// Container guards a JSON-encoded value stored under a single key.
// Update callbacks must return a new value instead of modifying the one they
// receive in place, because readers may still hold it.
type Container[T any] struct {
	mu    sync.RWMutex
	kv    store.KeyValue
	key   string
	value T
}

// Hydrate loads key from kv. Missing or malformed values yield def. A read
// failure also yields def, together with a PersistError.
func Hydrate[T any](ctx context.Context, kv store.KeyValue, key string, def T) (*Container[T], error) {
	c := &Container[T]{kv: kv, key: key, value: def}

	raw, err := kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return c, &PersistError{Key: key, Err: fmt.Errorf("read: %w", err)}
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("ignoring malformed stored value", "key", key, "error", err)
		return c, nil
	}
	c.value = v
	return c, nil
}

func (c *Container[T]) Key() string {
	return c.key
}

// Get returns the current value. Callers must treat it as read-only.
func (c *Container[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Update applies fn and persists the result. When fn fails nothing changes.
// When persisting fails the new value is kept and a PersistError is returned.
func (c *Container[T]) Update(ctx context.Context, fn func(cur T) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.value)
	if err != nil {
		return c.value, err
	}
	c.value = next

	data, err := json.Marshal(next)
	if err != nil {
		return next, &PersistError{Key: c.key, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := c.kv.Set(ctx, c.key, data); err != nil {
		return next, &PersistError{Key: c.key, Err: err}
	}
	return next, nil
}

// Set replaces the value.
func (c *Container[T]) Set(ctx context.Context, v T) error {
	_, err := c.Update(ctx, func(T) (T, error) { return v, nil })
	return err
}
