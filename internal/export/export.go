// Package export moves the whole catalog in and out of the backing store as
// spreadsheet or JSON files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"tresde/api/internal/store"
)

// Snapshot is the whole catalog in display order.
type Snapshot struct {
	Gemelos []store.Gemelo `json:"gemelos"`
	Marcas  []store.Marca  `json:"marcas"`
}

// Load reads both collections concurrently.
func Load(ctx context.Context, catalog *store.Catalog) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := catalog.Gemelos.List(ctx)
		if err != nil {
			return fmt.Errorf("load gemelos: %w", err)
		}
		snap.Gemelos = items
		return nil
	})
	g.Go(func() error {
		items, err := catalog.Marcas.List(ctx)
		if err != nil {
			return fmt.Errorf("load marcas: %w", err)
		}
		snap.Marcas = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func WriteJSON(w io.Writer, snap Snapshot) error {
	if snap.Gemelos == nil {
		snap.Gemelos = []store.Gemelo{}
	}
	if snap.Marcas == nil {
		snap.Marcas = []store.Marca{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadJSON accepts either a snapshot object or a bare array of tours, the
// shape of the legacy static catalog.
func ReadJSON(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read json: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err == nil {
		return snap, nil
	}
	var tours []store.Gemelo
	if err := json.Unmarshal(raw, &tours); err != nil {
		return Snapshot{}, fmt.Errorf("decode json: %w", err)
	}
	return Snapshot{Gemelos: tours}, nil
}
