package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a catalog file.
type File struct {
	Products []Entry `yaml:"products"`
}

// LoadFile reads a catalog from a .yaml, .yml or .xlsx file.
func LoadFile(path string) (*Catalog, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidCatalog, ext)
	}
}

func loadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidCatalog, path, err)
	}
	return New(file.Products...)
}

// loadXLSX reads the first sheet. The header row must contain a "name" column;
// a "category" column is optional.
func loadXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrInvalidCatalog, path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidCatalog, sheet, err)
	}
	if len(rows) == 0 {
		return New()
	}

	nameCol, categoryCol := -1, -1
	for i, cell := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "name":
			nameCol = i
		case "category":
			categoryCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("%w: sheet %q has no \"name\" column", ErrInvalidCatalog, sheet)
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		e := Entry{Name: cellAt(row, nameCol), Category: cellAt(row, categoryCol)}
		if strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.Category) == "" {
			continue
		}
		entries = append(entries, e)
	}
	return New(entries...)
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
