package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rustyeddy/positions/internal/id"
	"github.com/rustyeddy/positions/ledger"
)

// MemoryStore keeps encoded snapshots in maps. Used for tests and
// throwaway runs; nothing survives the process.
type MemoryStore struct {
	mu    sync.RWMutex
	index map[string]Meta
	blobs map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]Meta),
		blobs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, snap ledger.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.index[snap.Account.ID]; ok {
		delete(s.blobs, old.BlobKey)
	}
	key := id.New()
	s.blobs[key] = data
	s.index[snap.Account.ID] = metaFor(snap, key)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, accountID string) (ledger.Snapshot, error) {
	s.mu.RLock()
	m, ok := s.index[accountID]
	var data []byte
	if ok {
		data = s.blobs[m.BlobKey]
	}
	s.mu.RUnlock()

	if !ok {
		return ledger.Snapshot{}, notFound(accountID)
	}
	return decode(accountID, data)
}

func (s *MemoryStore) List(_ context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Meta, 0, len(s.index))
	for _, m := range s.index {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.index[accountID]
	if !ok {
		return notFound(accountID)
	}
	delete(s.blobs, m.BlobKey)
	delete(s.index, accountID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
