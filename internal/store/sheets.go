package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	errSheetMissing = errors.New("sheet does not exist")
	errSheetExists  = errors.New("sheet already exists")
)

// sheetsAPI is the slice of the Sheets v4 API the repository needs. Ranges
// are in A1 notation and row numbers are 1-based physical rows.
type sheetsAPI interface {
	GetValues(ctx context.Context, rng string) ([][]any, error)
	AppendRow(ctx context.Context, rng string, row []any) error
	UpdateRow(ctx context.Context, rng string, row []any) error
	SheetID(ctx context.Context, title string) (int64, bool, error)
	AddSheet(ctx context.Context, title string, rows, columns int) error
	DeleteRow(ctx context.Context, sheetID int64, row int) error
}

// SheetsRepository treats one sheet of a spreadsheet as a table. Row
// positions are never cached: every mutation rescans the sheet first.
// Concurrent writers can still interleave between the scan and the write;
// the admin area is assumed to have a single writer.
type SheetsRepository[T Record] struct {
	api   sheetsAPI
	sheet string
	codec rowCodec[T]
}

// located pairs a decoded record with its 1-based physical row.
type located[T Record] struct {
	record T
	row    int
}

const sheetGridRows = 1000

func newSheetsRepository[T Record](api sheetsAPI, sheet string, codec rowCodec[T]) *SheetsRepository[T] {
	return &SheetsRepository[T]{api: api, sheet: sheet, codec: codec}
}

func (r *SheetsRepository[T]) dataRange() string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(r.sheet), columnLetter(r.codec.width()))
}

func (r *SheetsRepository[T]) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(r.sheet), row, columnLetter(r.codec.width()), row)
}

// scan reads the sheet and decodes every data row. The header row and rows
// whose id cell is empty are skipped, so the physical row comes from the scan
// position rather than the record's index.
func (r *SheetsRepository[T]) scan(ctx context.Context) ([]located[T], error) {
	rows, err := r.api.GetValues(ctx, r.dataRange())
	if errors.Is(err, errSheetMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", r.sheet, err)
	}

	out := make([]located[T], 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if cellString(row, 0) == "" {
			continue
		}
		out = append(out, located[T]{record: r.codec.decode(row), row: i + 1})
	}
	return out, nil
}

func (r *SheetsRepository[T]) find(ctx context.Context, id string) (located[T], error) {
	rows, err := r.scan(ctx)
	if err != nil {
		return located[T]{}, err
	}
	for _, entry := range rows {
		if entry.record.RecordID() == id {
			return entry, nil
		}
	}
	return located[T]{}, ErrNotFound
}

func (r *SheetsRepository[T]) List(ctx context.Context) ([]T, error) {
	rows, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]T, len(rows))
	for i, entry := range rows {
		items[i] = entry.record
	}
	if r.codec.order != nil {
		r.codec.order(items)
	}
	return items, nil
}

func (r *SheetsRepository[T]) Get(ctx context.Context, id string) (T, error) {
	entry, err := r.find(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return entry.record, nil
}

func (r *SheetsRepository[T]) Create(ctx context.Context, record T) error {
	if err := r.ensureSheet(ctx); err != nil {
		return err
	}
	if err := r.api.AppendRow(ctx, r.dataRange(), r.codec.encode(record)); err != nil {
		return fmt.Errorf("append to %s: %w", r.sheet, err)
	}
	return nil
}

func (r *SheetsRepository[T]) Update(ctx context.Context, record T) error {
	entry, err := r.find(ctx, record.RecordID())
	if err != nil {
		return err
	}
	if err := r.api.UpdateRow(ctx, r.rowRange(entry.row), r.codec.encode(record)); err != nil {
		return fmt.Errorf("update %s row %d: %w", r.sheet, entry.row, err)
	}
	return nil
}

func (r *SheetsRepository[T]) Delete(ctx context.Context, id string) error {
	entry, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	sheetID, ok, err := r.api.SheetID(ctx, r.sheet)
	if err != nil {
		return fmt.Errorf("resolve sheet %s: %w", r.sheet, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := r.api.DeleteRow(ctx, sheetID, entry.row); err != nil {
		return fmt.Errorf("delete %s row %d: %w", r.sheet, entry.row, err)
	}
	return nil
}

// ensureSheet creates the sheet with its header on first write. Losing a
// creation race to another writer is fine; the header is then written only if
// the winner has not written it yet.
func (r *SheetsRepository[T]) ensureSheet(ctx context.Context) error {
	_, ok, err := r.api.SheetID(ctx, r.sheet)
	if err != nil {
		return fmt.Errorf("resolve sheet %s: %w", r.sheet, err)
	}
	if ok {
		return nil
	}

	err = r.api.AddSheet(ctx, r.sheet, sheetGridRows, r.codec.width())
	switch {
	case err == nil:
	case errors.Is(err, errSheetExists):
		head, err := r.api.GetValues(ctx, r.rowRange(1))
		if err != nil && !errors.Is(err, errSheetMissing) {
			return fmt.Errorf("read header of %s: %w", r.sheet, err)
		}
		if len(head) > 0 && cellString(head[0], 0) != "" {
			return nil
		}
	default:
		return fmt.Errorf("create sheet %s: %w", r.sheet, err)
	}

	header := make([]any, len(r.codec.header))
	for i, name := range r.codec.header {
		header[i] = name
	}
	if err := r.api.UpdateRow(ctx, r.rowRange(1), header); err != nil {
		return fmt.Errorf("write header of %s: %w", r.sheet, err)
	}
	return nil
}
