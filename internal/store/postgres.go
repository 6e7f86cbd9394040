package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// pgTable describes how one record type maps onto a table. The first column
// is always the primary key.
type pgTable[T Record] struct {
	name    string
	columns []string
	orderBy string
	scan    func(rowScanner) (T, error)
	values  func(T) []any
}

var gemelosTable = pgTable[Gemelo]{
	name:    "gemelos",
	columns: []string{"id", "titulo", "descripcion", "iframe", "ubicacion", "fecha", "thumbnail_url", "created_at"},
	orderBy: "created_at DESC, LENGTH(id) DESC, id DESC",
	scan: func(row rowScanner) (Gemelo, error) {
		var g Gemelo
		err := row.Scan(&g.ID, &g.Titulo, &g.Descripcion, &g.Iframe, &g.Ubicacion, &g.Fecha, &g.ThumbnailURL, &g.CreatedAt)
		return g, err
	},
	values: func(g Gemelo) []any {
		return []any{g.ID, g.Titulo, g.Descripcion, g.Iframe, g.Ubicacion, g.Fecha, g.ThumbnailURL, g.CreatedAt}
	},
}

var marcasTable = pgTable[Marca]{
	name:    "marcas",
	columns: []string{"id", "nombre", "logo_url", "url", "orden", "fecha", "created_at"},
	orderBy: "orden ASC, created_at ASC, LENGTH(id) ASC, id ASC",
	scan: func(row rowScanner) (Marca, error) {
		var m Marca
		err := row.Scan(&m.ID, &m.Nombre, &m.LogoURL, &m.URL, &m.Orden, &m.Fecha, &m.CreatedAt)
		return m, err
	},
	values: func(m Marca) []any {
		return []any{m.ID, m.Nombre, m.LogoURL, m.URL, m.Orden, m.Fecha, m.CreatedAt}
	},
}

func (t pgTable[T]) selectSQL() string {
	return fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(t.columns, ", "), t.name)
}

func (t pgTable[T]) insertSQL() string {
	marks := make([]string, len(t.columns))
	for i := range t.columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t.name, strings.Join(t.columns, ", "), strings.Join(marks, ", "))
}

// updateSQL rewrites every column except the key and created_at.
func (t pgTable[T]) updateSQL() string {
	var sets []string
	for i, col := range t.columns {
		if i == 0 || col == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s=$%d", col, i+1))
	}
	return fmt.Sprintf(`UPDATE %s SET %s WHERE id=$1`, t.name, strings.Join(sets, ", "))
}

// PostgresRepository stores one collection in a PostgreSQL table.
type PostgresRepository[T Record] struct {
	db    *sql.DB
	table pgTable[T]
}

func (r *PostgresRepository[T]) List(ctx context.Context) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, r.table.selectSQL()+` ORDER BY `+r.table.orderBy)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.name, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := r.table.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table.name, err)
	}
	return items, nil
}

func (r *PostgresRepository[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := r.table.scan(r.db.QueryRowContext(ctx, r.table.selectSQL()+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s/%s: %w", r.table.name, id, err)
	}
	return item, nil
}

func (r *PostgresRepository[T]) Create(ctx context.Context, record T) error {
	if _, err := r.db.ExecContext(ctx, r.table.insertSQL(), r.table.values(record)...); err != nil {
		return fmt.Errorf("insert %s/%s: %w", r.table.name, record.RecordID(), err)
	}
	return nil
}

func (r *PostgresRepository[T]) Update(ctx context.Context, record T) error {
	values := r.table.values(record)
	// created_at is the last column and is not part of the SET list.
	res, err := r.db.ExecContext(ctx, r.table.updateSQL(), values[:len(values)-1]...)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", r.table.name, record.RecordID(), err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository[T]) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table.name+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.table.name, id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NewPostgresCatalog wraps an open pool. Close on the catalog closes the pool.
func NewPostgresCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		Backend: "postgres",
		Gemelos: &PostgresRepository[Gemelo]{db: db, table: gemelosTable},
		Marcas:  &PostgresRepository[Marca]{db: db, table: marcasTable},
		ping:    db.PingContext,
		close:   db.Close,
	}
}
