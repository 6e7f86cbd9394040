package store

import (
	"strconv"
	"strings"
)

// rowCodec maps one fixed-width spreadsheet row to a record and back.
type rowCodec[T Record] struct {
	header []string
	decode func(row []any) T
	encode func(record T) []any
	// order sorts a scan result, which arrives in physical row order.
	order func([]T)
}

func (c rowCodec[T]) width() int { return len(c.header) }

var gemeloCodec = rowCodec[Gemelo]{
	header: []string{"ID", "Titulo", "Descripcion", "Iframe", "Fecha", "Ubicacion", "Thumbnail"},
	decode: func(row []any) Gemelo {
		return Gemelo{
			ID:           cellString(row, 0),
			Titulo:       cellString(row, 1),
			Descripcion:  cellString(row, 2),
			Iframe:       cellString(row, 3),
			Fecha:        cellString(row, 4),
			Ubicacion:    cellString(row, 5),
			ThumbnailURL: cellString(row, 6),
		}
	},
	encode: func(g Gemelo) []any {
		return []any{g.ID, g.Titulo, g.Descripcion, g.Iframe, g.Fecha, g.Ubicacion, g.ThumbnailURL}
	},
	// Rows are appended, so the last row is the newest tour.
	order: reverse[Gemelo],
}

var marcaCodec = rowCodec[Marca]{
	header: []string{"ID", "Nombre", "Logo URL", "URL", "Orden", "Fecha"},
	decode: func(row []any) Marca {
		return Marca{
			ID:      cellString(row, 0),
			Nombre:  cellString(row, 1),
			LogoURL: cellString(row, 2),
			URL:     cellString(row, 3),
			Orden:   cellInt(row, 4),
			Fecha:   cellString(row, 5),
		}
	},
	encode: func(m Marca) []any {
		return []any{m.ID, m.Nombre, m.LogoURL, m.URL, m.Orden, m.Fecha}
	},
	order: SortMarcas,
}

// cellString reads a cell rendered unformatted: the API hands back numbers
// as float64, so ids typed by hand into the sheet arrive that way.
func cellString(row []any, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// cellInt parses a numeric cell; anything unparseable counts as 0.
func cellInt(row []any, idx int) int {
	if idx < len(row) {
		if f, ok := row[idx].(float64); ok {
			return int(f)
		}
	}
	n, err := strconv.Atoi(cellString(row, idx))
	if err != nil {
		return 0
	}
	return n
}

// columnLetter converts a 1-based column count to its A1 letter. The sheets
// here never exceed 26 columns.
func columnLetter(n int) string {
	return string(rune('A' + n - 1))
}

// quoteSheet renders a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
