package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryDoc struct {
	data []byte
	ts   time.Time
}

// MemoryStore is an in-memory Store used by tests and local runs. RWMutex
// separates read locks from write locks to suit the read-heavy API surface.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]memoryDoc
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]memoryDoc)}
}

func (m *MemoryStore) Insert(ctx context.Context, collection, id string, data []byte, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collection(collection)
	if _, ok := col[id]; ok {
		return ErrExists
	}
	col[id] = memoryDoc{data: cloneBytes(data), ts: ts}
	return nil
}

func (m *MemoryStore) InsertIfAbsent(ctx context.Context, collection, id string, data []byte, ts time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collection(collection)
	if _, ok := col[id]; ok {
		return false, nil
	}
	col[id] = memoryDoc{data: cloneBytes(data), ts: ts}
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(doc.data), nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *MemoryStore) Scan(ctx context.Context, collection string, n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.docs[collection]))
	for id, doc := range m.docs[collection] {
		entries = append(entries, Entry{ID: id, Data: cloneBytes(doc.data), TS: doc.ts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].TS.Equal(entries[j].TS) {
			return entries[i].TS.After(entries[j].TS)
		}
		return entries[i].ID < entries[j].ID
	})
	if limit := clampScan(n); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) collection(name string) map[string]memoryDoc {
	col, ok := m.docs[name]
	if !ok {
		col = make(map[string]memoryDoc)
		m.docs[name] = col
	}
	return col
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
