package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory RecordStore for tests and dry runs.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
	failPuts    bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string]map[string][]byte)}
}

// FailPuts makes every subsequent Put return an error, for exercising the
// best-effort write path.
func (s *MemStore) FailPuts(fail bool) {
	s.mu.Lock()
	s.failPuts = fail
	s.mu.Unlock()
}

func (s *MemStore) Put(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts {
		return fmt.Errorf("store unavailable")
	}
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		s.collections[collection] = c
	}
	c[id] = data
	return nil
}

func (s *MemStore) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	data, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal document %s/%s: %w", collection, id, err)
	}
	return true, nil
}

// Count returns the number of documents in a collection.
func (s *MemStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *MemStore) Close() error { return nil }
