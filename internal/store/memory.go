package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"construction-api/internal/models"
)

// MemoryRepository keeps documents in process memory. It backs the memory
// driver used for local development and handler tests.
type MemoryRepository[T Document] struct {
	mu   sync.RWMutex
	docs map[string]T
}

func NewMemoryRepository[T Document]() *MemoryRepository[T] {
	return &MemoryRepository[T]{docs: make(map[string]T)}
}

// NewMemoryDB returns a DB whose repositories live in memory.
func NewMemoryDB() *DB {
	return &DB{
		Projects:  NewMemoryRepository[models.Project](),
		Suppliers: NewMemoryRepository[models.Supplier](),
		Driver:    DriverMemory,
	}
}

func (r *MemoryRepository[T]) List(_ context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]T, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		ci, cj := docs[i].Created(), docs[j].Created()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return docs[i].DocumentID().Hex() > docs[j].DocumentID().Hex()
	})
	return docs, nil
}

func (r *MemoryRepository[T]) Insert(_ context.Context, doc T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := doc.DocumentID().Hex()
	if _, ok := r.docs[key]; ok {
		return errors.Errorf("duplicate key: _id %s", key)
	}
	r.docs[key] = doc
	return nil
}

func (r *MemoryRepository[T]) FindByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[memoryKey(id)]
	if !ok {
		return doc, ErrNotFound
	}
	return doc, nil
}

// Update merges through the JSON form of the document, which is how the
// postgres backend stores it as well.
func (r *MemoryRepository[T]) Update(_ context.Context, id string, fields map[string]any) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id = memoryKey(id)
	doc, ok := r.docs[id]
	if !ok {
		return doc, ErrNotFound
	}
	if len(fields) == 0 {
		return doc, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return doc, errors.WithStack(err)
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return doc, errors.WithStack(err)
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return doc, errors.WithStack(err)
		}
		merged[k] = b
	}
	raw, err = json.Marshal(merged)
	if err != nil {
		return doc, errors.WithStack(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return doc, errors.WithStack(err)
	}
	r.docs[id] = out
	return out, nil
}

func (r *MemoryRepository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id = memoryKey(id)
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRepository[T]) InsertMany(ctx context.Context, docs []T) (int, error) {
	inserted := 0
	var firstErr error
	for _, doc := range docs {
		if err := r.Insert(ctx, doc); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	return inserted, firstErr
}

// memoryKey canonicalizes an id the way ObjectID parsing does; malformed ids
// map to a key no document has.
func memoryKey(id string) string {
	oid, err := parseID(id)
	if err != nil {
		return ""
	}
	return oid.Hex()
}
