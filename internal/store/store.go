// Package store provides the durable key-value persistence behind the ledger.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by Get when a key has never been written.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the durable key-value collaborator the ledger persists into.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// PutMany writes all entries atomically.
	PutMany(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Stable persistence keys. They must not change between versions.
const (
	KeyAccounts      = "tradelog.accounts"
	KeyActiveAccount = "tradelog.active_account"
	KeySortMode      = "tradelog.sort_mode"
	KeyManualOrder   = "tradelog.manual_order"
	KeyDisplayMode   = "tradelog.display_mode"

	// KeyAccountsCorrupt keeps the last accounts value that failed to decode.
	KeyAccountsCorrupt = "tradelog.accounts.corrupt"
)

// MemoryStore is an in-process KVStore, used in tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// PutMany stores all entries.
func (m *MemoryStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
