// Package csvfile implements the repository interfaces on top of the flat
// CSV files the marketplace has always used: usuarios.csv for accounts and
// vendas.csv for listings.
//
// Every mutation rewrites the whole file. Reads go through a short
// time-based cache so a burst of page views does not re-parse the file each
// time; writes refresh the cache directly.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// table is a CSV file held in memory: a header and its rows.
type table struct {
	header []string
	rows   [][]string
}

// index maps column names to their position in the header.
func (t *table) index() map[string]int {
	idx := make(map[string]int, len(t.header))
	for i, name := range t.header {
		idx[name] = i
	}
	return idx
}

// errMissing marks a file that does not exist or has no content. Callers
// treat it as an empty table.
var errMissing = errors.New("csvfile: file missing or empty")

// readTable loads a whole CSV file. A missing or empty file yields
// errMissing; any other failure is returned wrapped.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errMissing
		}
		return nil, fmt.Errorf("csvfile: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // short rows are padded by the row decoders

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errMissing
		}
		return nil, fmt.Errorf("csvfile: reading header of %s: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvfile: reading %s: %w", path, err)
	}

	return &table{header: header, rows: rows}, nil
}

// writeTable replaces path with the given table. The data goes to a temp
// file in the same directory first, so a crash mid-write never leaves a
// truncated file behind.
func writeTable(path string, t *table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csvfile: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvfile: creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(t.header); err != nil {
		tmp.Close()
		return fmt.Errorf("csvfile: writing header of %s: %w", path, err)
	}
	if err := w.WriteAll(t.rows); err != nil {
		tmp.Close()
		return fmt.Errorf("csvfile: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvfile: closing temp file for %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csvfile: replacing %s: %w", path, err)
	}
	return nil
}

// cell returns row[i], or "" when the column is absent or the row is short.
func cell(row []string, idx map[string]int, column string) (string, bool) {
	i, ok := idx[column]
	if !ok {
		return "", false
	}
	if i >= len(row) {
		return "", true
	}
	return row[i], true
}
