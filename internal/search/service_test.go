package search

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"tresde/api/internal/store"
)

type fakeEngine struct {
	healthy  bool
	ids      []string
	err      error
	mu       sync.Mutex
	indexed  []TourRecord
	searched int
}

func (f *fakeEngine) Healthy() bool { return f.healthy }

func (f *fakeEngine) SearchIDs(string, int) ([]string, error) {
	f.searched++
	return f.ids, f.err
}

func (f *fakeEngine) IndexTours(tours []TourRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, tours...)
	return nil
}

func (f *fakeEngine) DeleteTour(string) error { return nil }

var tours = []store.Gemelo{
	{ID: "3", Titulo: "Ático en Valencia", Ubicacion: "Valencia", Descripcion: "Vistas al mar"},
	{ID: "2", Titulo: "Nave industrial", Ubicacion: "Paterna", Descripcion: "Almacén logístico"},
	{ID: "1", Titulo: "Museo", Ubicacion: "Madrid", Descripcion: "Sala de exposiciones junto al MAR"},
}

func TestSubstringFallbackWithoutEngine(t *testing.T) {
	svc := NewService(nil, zap.NewNop())

	got := svc.Search("mar", tours)
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Fatalf("unexpected results %+v", got)
	}
	if got := svc.Search("  ", tours); len(got) != 3 {
		t.Fatalf("expected blank query to return every tour, got %d", len(got))
	}
	if got := svc.Search("zzz", tours); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestEngineResultsResolvedAgainstTours(t *testing.T) {
	engine := &fakeEngine{healthy: true, ids: []string{"1", "gone", "3"}}
	svc := NewService(engine, zap.NewNop())

	got := svc.Search("valencia", tours)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("expected engine order with unknown ids dropped, got %+v", got)
	}
}

func TestEngineErrorFallsBack(t *testing.T) {
	engine := &fakeEngine{healthy: true, err: errors.New("timeout")}
	svc := NewService(engine, zap.NewNop())

	got := svc.Search("paterna", tours)
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected substring fallback, got %+v", got)
	}
	if engine.searched != 1 {
		t.Fatalf("expected engine to be tried once, got %d", engine.searched)
	}
}

func TestUnhealthyEngineIsSkipped(t *testing.T) {
	engine := &fakeEngine{healthy: false}
	svc := NewService(engine, zap.NewNop())
	svc.Search("museo", tours)
	svc.Reindex(tours)
	if engine.searched != 0 || len(engine.indexed) != 0 {
		t.Fatal("expected unhealthy engine to be skipped")
	}
}

func TestReindexPushesAllTours(t *testing.T) {
	engine := &fakeEngine{healthy: true}
	NewService(engine, zap.NewNop()).Reindex(tours)
	if len(engine.indexed) != 3 || engine.indexed[0].Titulo != "Ático en Valencia" {
		t.Fatalf("unexpected index payload %+v", engine.indexed)
	}
}
