package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository keeps a collection in process memory. It backs
// STORE_BACKEND=memory and the service tests.
type MemoryRepository[T Record] struct {
	mu    sync.Mutex
	items []T
	order func([]T)
}

func NewMemoryRepository[T Record](order func([]T), seed ...T) *MemoryRepository[T] {
	items := make([]T, len(seed))
	copy(items, seed)
	return &MemoryRepository[T]{items: items, order: order}
}

func (r *MemoryRepository[T]) List(context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	if r.order != nil {
		r.order(out)
	}
	return out, nil
}

func (r *MemoryRepository[T]) Get(_ context.Context, id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.items[idx], nil
	}
	var zero T
	return zero, ErrNotFound
}

func (r *MemoryRepository[T]) Create(_ context.Context, record T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(record.RecordID()) >= 0 {
		return fmt.Errorf("create %s: duplicate id", record.RecordID())
	}
	r.items = append(r.items, record)
	return nil
}

func (r *MemoryRepository[T]) Update(_ context.Context, record T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(record.RecordID())
	if idx < 0 {
		return ErrNotFound
	}
	r.items[idx] = record
	return nil
}

func (r *MemoryRepository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	return nil
}

func (r *MemoryRepository[T]) indexOf(id string) int {
	for i, item := range r.items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

// NewMemoryCatalog returns an empty in-memory catalog.
func NewMemoryCatalog() *Catalog {
	return &Catalog{
		Backend: "memory",
		Gemelos: NewMemoryRepository[Gemelo](SortGemelos),
		Marcas:  NewMemoryRepository[Marca](SortMarcas),
	}
}

// unavailableRepository answers every call with ErrUnavailable. It stands in
// for a backend whose credentials are missing so the server still boots.
type unavailableRepository[T Record] struct {
	reason string
}

func (r unavailableRepository[T]) err() error {
	return fmt.Errorf("%w: %s", ErrUnavailable, r.reason)
}

func (r unavailableRepository[T]) List(context.Context) ([]T, error) { return nil, r.err() }

func (r unavailableRepository[T]) Get(context.Context, string) (T, error) {
	var zero T
	return zero, r.err()
}

func (r unavailableRepository[T]) Create(context.Context, T) error      { return r.err() }
func (r unavailableRepository[T]) Update(context.Context, T) error      { return r.err() }
func (r unavailableRepository[T]) Delete(context.Context, string) error { return r.err() }

// Unavailable returns a catalog that fails every call with ErrUnavailable.
func Unavailable(backend, reason string) *Catalog {
	return &Catalog{
		Backend: backend,
		Gemelos: unavailableRepository[Gemelo]{reason: reason},
		Marcas:  unavailableRepository[Marca]{reason: reason},
		ping: func(context.Context) error {
			return fmt.Errorf("%w: %s", ErrUnavailable, reason)
		},
	}
}
