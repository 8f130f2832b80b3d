package orchestrator

import (
	"context"
	"slices"
	"sync"

	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// Store persists signature fields. Implementations must return copies so
// callers cannot mutate stored state.
type Store interface {
	Get(ctx context.Context, id string) (*field.SignatureField, error)
	List(ctx context.Context, documentID string) ([]*field.SignatureField, error)
	Put(ctx context.Context, f *field.SignatureField) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu     sync.RWMutex
	fields map[string]*field.SignatureField
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: make(map[string]*field.SignatureField)}
}

// Get returns a copy of a field.
func (s *MemoryStore) Get(ctx context.Context, id string) (*field.SignatureField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, sigerr.New(sigerr.KindNotFound, "no field %q", id).WithField(id)
	}
	return f.Clone(), nil
}

// List returns copies of a document's fields in reading order.
func (s *MemoryStore) List(ctx context.Context, documentID string) ([]*field.SignatureField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*field.SignatureField
	for _, f := range s.fields {
		if f.DocumentID == documentID {
			out = append(out, f.Clone())
		}
	}
	slices.SortFunc(out, field.CompareReadingOrder)
	return out, nil
}

// Put inserts or replaces a field.
func (s *MemoryStore) Put(ctx context.Context, f *field.SignatureField) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.fields[f.ID] = f.Clone()
	s.mu.Unlock()
	return nil
}

// Delete removes a field.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[id]; !ok {
		return sigerr.New(sigerr.KindNotFound, "no field %q", id).WithField(id)
	}
	delete(s.fields, id)
	return nil
}
