// Package export round-trips the listing grid through an XLSX workbook, so
// admins can edit the stock in a spreadsheet and upload it back.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sakif/veiculos/internal/apperror"
	"github.com/sakif/veiculos/internal/model"
)

// SheetName is the worksheet holding the grid.
const SheetName = "Estoque"

// Columns in the order they are written. Preco_Formatado is informational;
// it is ignored on import.
var Columns = []string{
	"ID", "Tipo", "Marca", "Modelo", "Ano", "Cor",
	"Quilometragem", "Preco", "is_featured", "Caminho_Fotos", "Preco_Formatado",
}

// required must be present in an imported header.
var required = []string{"ID", "Tipo", "Marca", "Modelo", "Ano", "Preco"}

// WriteListings writes the grid as a single-sheet workbook.
func WriteListings(w io.Writer, listings []model.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}

	for i, l := range listings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
		row := []any{
			l.ID, l.Type, l.Brand, l.Model, l.Year, l.Color,
			l.Mileage, l.Price, l.IsFeatured,
			model.JoinPhotoPaths(l.PhotoPaths), l.FormattedPrice(),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: writing workbook: %w", err)
	}
	return nil
}

// ReadListings parses a workbook written by WriteListings (or edited from
// one). It reads the Estoque sheet, or the first sheet when that is absent.
// Rows are returned in sheet order; blank rows are skipped.
func ReadListings(r io.Reader) ([]model.Listing, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.ValidationFailed("file", "not a valid XLSX workbook")
	}
	defer f.Close()

	sheet := SheetName
	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperror.ValidationFailed("file", "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("export: reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []model.Listing{}, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, apperror.ValidationFailed(col, fmt.Sprintf("column %s is missing", col))
		}
	}

	listings := make([]model.Listing, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		l, err := decodeRow(row, idx)
		if err != nil {
			return nil, apperror.ValidationFailed(err.field, fmt.Sprintf("row %d: %s", n+2, err.msg))
		}
		listings = append(listings, l)
	}
	return listings, nil
}

type rowError struct {
	field string
	msg   string
}

func decodeRow(row []string, idx map[string]int) (model.Listing, *rowError) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	integer := func(col string) (int64, *rowError) {
		v := get(col)
		if v == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &rowError{field: col, msg: fmt.Sprintf("%s %q is not a number", col, v)}
		}
		return int64(f), nil
	}

	var l model.Listing
	var rerr *rowError

	if l.ID, rerr = integer("ID"); rerr != nil {
		return l, rerr
	}
	year, rerr := integer("Ano")
	if rerr != nil {
		return l, rerr
	}
	l.Year = int(year)
	if l.Mileage, rerr = integer("Quilometragem"); rerr != nil {
		return l, rerr
	}
	if l.Price, rerr = integer("Preco"); rerr != nil {
		return l, rerr
	}

	l.Type = get("Tipo")
	l.Brand = get("Marca")
	l.Model = get("Modelo")
	l.Color = get("Cor")
	l.PhotoPaths = model.SplitPhotoPaths(get("Caminho_Fotos"))

	switch strings.ToLower(get("is_featured")) {
	case "true", "1", "sim", "yes":
		l.IsFeatured = true
	}

	return l, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
