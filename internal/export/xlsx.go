package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tresde/api/internal/store"
)

const (
	gemelosSheet = "Gemelos"
	marcasSheet  = "Marcas"
)

// Column layouts match the Sheets backend so an export can be pasted into
// the live spreadsheet.
var (
	gemelosHeader = []any{"ID", "Titulo", "Descripcion", "Iframe", "Fecha", "Ubicacion", "Thumbnail"}
	marcasHeader  = []any{"ID", "Nombre", "Logo URL", "URL", "Orden", "Fecha"}
)

// WriteXLSX writes one worksheet per collection.
func WriteXLSX(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gemelosSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(marcasSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	gemelos := make([][]any, 0, len(snap.Gemelos))
	for _, g := range snap.Gemelos {
		gemelos = append(gemelos, []any{g.ID, g.Titulo, g.Descripcion, g.Iframe, g.Fecha, g.Ubicacion, g.ThumbnailURL})
	}
	if err := writeSheet(f, gemelosSheet, gemelosHeader, gemelos, bold); err != nil {
		return err
	}

	marcas := make([][]any, 0, len(snap.Marcas))
	for _, m := range snap.Marcas {
		marcas = append(marcas, []any{m.ID, m.Nombre, m.LogoURL, m.URL, m.Orden, m.Fecha})
	}
	if err := writeSheet(f, marcasSheet, marcasHeader, marcas, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// ReadXLSX parses a workbook produced by WriteXLSX or edited by hand. Rows
// without an id are skipped; a missing worksheet reads as empty.
func ReadXLSX(r io.Reader) (Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	rows, err := sheetRows(f, gemelosSheet)
	if err != nil {
		return Snapshot{}, err
	}
	for _, row := range rows {
		snap.Gemelos = append(snap.Gemelos, store.Gemelo{
			ID:           cell(row, 0),
			Titulo:       cell(row, 1),
			Descripcion:  cell(row, 2),
			Iframe:       cell(row, 3),
			Fecha:        cell(row, 4),
			Ubicacion:    cell(row, 5),
			ThumbnailURL: cell(row, 6),
		})
	}

	rows, err = sheetRows(f, marcasSheet)
	if err != nil {
		return Snapshot{}, err
	}
	for i, row := range rows {
		orden := 0
		if raw := cell(row, 4); raw != "" {
			orden, err = strconv.Atoi(raw)
			if err != nil {
				return Snapshot{}, fmt.Errorf("%s entry %d: orden %q is not a number", marcasSheet, i+1, raw)
			}
		}
		snap.Marcas = append(snap.Marcas, store.Marca{
			ID:      cell(row, 0),
			Nombre:  cell(row, 1),
			LogoURL: cell(row, 2),
			URL:     cell(row, 3),
			Orden:   orden,
			Fecha:   cell(row, 5),
		})
	}
	return snap, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 || cell(row, 0) == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
