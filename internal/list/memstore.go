package list

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It backs development and tests, and production deployments that run
// without a configured database. The zero value is ready to use.
type MemStore struct {
	mu        sync.RWMutex
	lists     map[string]List
	listOrder []string
	purchases []PurchaseRecord
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{lists: make(map[string]List)}
}

// CreateList implements [Store.CreateList].
func (s *MemStore) CreateList(ctx context.Context, name string) (List, error) {
	id, err := generateID()
	if err != nil {
		return List{}, fmt.Errorf("list: generate id: %w", err)
	}
	if name == "" {
		name = "My Shopping List"
	}
	l := List{ID: id, Name: name}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lists == nil {
		s.lists = make(map[string]List)
	}
	s.lists[id] = l.Clone()
	s.listOrder = append(s.listOrder, id)
	return l, nil
}

// GetList implements [Store.GetList].
func (s *MemStore) GetList(ctx context.Context, id string) (List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[id]
	if !ok {
		return List{}, ErrNotFound
	}
	return l.Clone(), nil
}

// SaveList implements [Store.SaveList].
func (s *MemStore) SaveList(ctx context.Context, l List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[l.ID]; !ok {
		return ErrNotFound
	}
	s.lists[l.ID] = l.Clone()
	return nil
}

// DeleteList implements [Store.DeleteList].
func (s *MemStore) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[id]; !ok {
		return ErrNotFound
	}
	delete(s.lists, id)
	for i, lid := range s.listOrder {
		if lid == id {
			s.listOrder = append(s.listOrder[:i], s.listOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Lists implements [Store.Lists].
func (s *MemStore) Lists(ctx context.Context) ([]List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]List, 0, len(s.listOrder))
	for _, id := range s.listOrder {
		if l, ok := s.lists[id]; ok {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

// RecordPurchases implements [Store.RecordPurchases].
func (s *MemStore) RecordPurchases(ctx context.Context, records []PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, records...)
	return nil
}

// Purchases implements [Store.Purchases].
func (s *MemStore) Purchases(ctx context.Context) ([]PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PurchaseRecord, len(s.purchases))
	copy(out, s.purchases)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})
	return out, nil
}

// generateID returns a 16-character random hex string.
func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
