// Package store persists catalog records in Firestore, Google Sheets,
// PostgreSQL or memory behind one repository contract.
package store

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Kind names a catalog collection.
type Kind string

const (
	KindGemelos Kind = "gemelos"
	KindMarcas  Kind = "marcas"
)

// Repository is the uniform CRUD surface over one collection. Update replaces
// the stored record that carries the same id.
type Repository[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, record T) error
	Update(ctx context.Context, record T) error
	Delete(ctx context.Context, id string) error
}

// Catalog bundles the two collections of one backend.
type Catalog struct {
	Backend string
	Gemelos Repository[Gemelo]
	Marcas  Repository[Marca]

	ping  func(context.Context) error
	close func() error
}

func (c *Catalog) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

func (c *Catalog) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// SortGemelos orders tours newest first. Ties on creation time fall back to
// the time-derived id, which grows with insertion order.
func SortGemelos(items []Gemelo) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return idAfter(items[i].ID, items[j].ID)
	})
}

func idAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// SortMarcas orders brands by ascending display order. Equal orden values
// keep insertion order: oldest creation time first, then the smaller id.
func SortMarcas(items []Marca) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Orden != b.Orden {
			return a.Orden < b.Orden
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return idAfter(b.ID, a.ID)
	})
}
