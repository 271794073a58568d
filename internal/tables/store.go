// Package tables loads per-customer reference tables from a directory
// of exports. Each .csv or .xlsx file is one table named after the file
// base name; the first row is the header and keys the data rows.
package tables

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/logger"
)

// DirStore serves reference tables from a single directory.
type DirStore struct {
	dir string
}

// NewDirStore creates a store over dir. The directory is read lazily;
// a missing directory surfaces on the first listing.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Tables lists the available table base names. os.ReadDir sorts by file
// name, so enumeration order is deterministic run to run.
func (s *DirStore) Tables(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read tables directory %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !supportedTable(entry.Name()) {
			continue
		}
		names = append(names, baseName(entry.Name()))
	}
	return names, nil
}

// Rows loads every data row of the named table, keyed by the trimmed
// header labels.
func (s *DirStore) Rows(ctx context.Context, name string) ([]domain.ReferenceRow, error) {
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}

	var raw [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		raw, err = readCSV(path)
	case ".xlsx":
		raw, err = readXLSX(path)
	default:
		err = fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	rows := buildRows(raw)
	log := logger.FromContext(ctx)
	log.Debug().Str("table", name).Int("rows", len(rows)).Msg("loaded reference table")
	return rows, nil
}

func (s *DirStore) find(name string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read tables directory %s: %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !supportedTable(entry.Name()) {
			continue
		}
		if baseName(entry.Name()) == name {
			return filepath.Join(s.dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no table file named %q in %s", name, s.dir)
}

func supportedTable(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

func baseName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // customer exports are frequently ragged
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

// buildRows keys the data rows by the trimmed header labels. Labels are
// trimmed exactly once, here; everything downstream sees clean labels.
// Cells past the header width are dropped, short rows simply miss the
// trailing labels.
func buildRows(raw [][]string) []domain.ReferenceRow {
	if len(raw) == 0 {
		return nil
	}

	labels := make([]string, len(raw[0]))
	for i, label := range raw[0] {
		labels[i] = strings.TrimSpace(label)
	}

	rows := make([]domain.ReferenceRow, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		values := make(map[string]string, len(labels))
		for i, label := range labels {
			if i < len(cells) {
				values[label] = cells[i]
			}
		}
		rows = append(rows, domain.ReferenceRow{Labels: labels, Values: values})
	}
	return rows
}
