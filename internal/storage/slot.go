// Package storage keeps the ledger in a single durable key-value slot.
package storage

import (
	"context"
	"sync"
)

// DefaultKey is the slot key holding the serialized transaction list.
const DefaultKey = "finx_transactions"

// Slot is a durable key-value pair store. Put overwrites the whole value.
type Slot interface {
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// MemorySlot keeps payloads in process memory.
type MemorySlot struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string][]byte)}
}

func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemorySlot) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

func (s *MemorySlot) Close() error {
	return nil
}
