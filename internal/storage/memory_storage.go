package storage

import (
	"sync"
)

// MemoryStorage keeps the library in process memory for the lifetime of a
// session.
type MemoryStorage struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStorage creates an empty in-memory library.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{docs: make(map[string]Document)}
}

func (ms *MemoryStorage) Save(doc *Document) error {
	if err := validateName(doc.Name); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.docs[doc.Name] = *doc
	return nil
}

func (ms *MemoryStorage) Get(name string) (*Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	doc, ok := ms.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (ms *MemoryStorage) Delete(name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.docs[name]; !ok {
		return ErrNotFound
	}
	delete(ms.docs, name)
	return nil
}

func (ms *MemoryStorage) List() ([]*Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*Document, 0, len(ms.docs))
	for _, doc := range ms.docs {
		d := doc
		out = append(out, &d)
	}
	sortByName(out)
	return out, nil
}

// Close is a no-op for memory storage
func (ms *MemoryStorage) Close() error {
	return nil
}
