package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/fatigue-cli/internal/utils"
)

// ResolveInput maps a user-supplied path to a concrete data file.
// A directory resolves to its first .xlsx entry in lexical order.
func ResolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("input file %s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	found, err := utils.FirstFileWithExt(path, ".xlsx")
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no .xlsx file found in %s: %w", path, ErrNotFound)
	}
	return found, nil
}

// Load reads an .xlsx, .csv or .tsv file into a Table.
func Load(path string, opt Options) (*Table, error) {
	resolved, err := ResolveInput(path)
	if err != nil {
		return nil, err
	}
	var (
		rows  [][]string
		sheet string
	)
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".xlsx":
		rows, sheet, err = readXLSX(resolved, opt.SheetName, opt.SheetIndex)
	case ".csv", ".tsv":
		rows, err = readCSV(resolved, opt.Delimiter)
	default:
		return nil, fmt.Errorf("%s: %w (use .xlsx, .csv or .tsv)", filepath.Base(resolved), ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(resolved), ErrEmpty)
	}
	t, err := NewTable(filepath.Base(resolved), rows[0], rows[1:], opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(resolved), err)
	}
	t.Sheet = sheet
	return t, nil
}
