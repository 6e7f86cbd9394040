package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPostgresCatalogRoundTrip(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TRESDE_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TRESDE_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := OpenDB(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	migrations, err := Migrations("")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	for pass := 1; pass <= 2; pass++ {
		if err := ApplyMigrations(ctx, db, migrations, zap.NewNop()); err != nil {
			t.Fatalf("apply migrations (pass %d): %v", pass, err)
		}
	}

	catalog := NewPostgresCatalog(db)
	defer catalog.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := Gemelo{ID: "1", Titulo: "Uno", Descripcion: "d", Iframe: "<iframe>", Fecha: "2024-01-01", CreatedAt: now}
	second := Gemelo{ID: "2", Titulo: "Dos", Descripcion: "d", Iframe: "<iframe>", Fecha: "2024-01-02", CreatedAt: now.Add(time.Second)}
	for _, g := range []Gemelo{first, second} {
		if err := catalog.Gemelos.Create(ctx, g); err != nil {
			t.Fatalf("create %s: %v", g.ID, err)
		}
	}

	items, err := catalog.Gemelos.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "2" {
		t.Fatalf("expected newest first, got %+v", items)
	}

	first.Titulo = "Uno bis"
	if err := catalog.Gemelos.Update(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := catalog.Gemelos.Get(ctx, "1")
	if err != nil || got.Titulo != "Uno bis" {
		t.Fatalf("expected updated title, got %+v err=%v", got, err)
	}

	if err := catalog.Marcas.Update(ctx, Marca{ID: "missing", Nombre: "x", LogoURL: "/x.png"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := catalog.Gemelos.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := catalog.Gemelos.Get(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
