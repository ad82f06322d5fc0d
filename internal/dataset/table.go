package dataset

import (
	"fmt"
	"math"
	"strings"
)

// Options controls how raw cells become a numeric table.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, strip common separators (',' '.' space)
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{
		MaxRows:    100000,
		SheetIndex: 1,
	}
}

// Table is an immutable, column-major numeric dataset.
// Cells that are empty or not numeric hold NaN.
type Table struct {
	Name     string
	Sheet    string
	Columns  []string
	Rows     int
	Warnings []string

	values [][]float64
	index  map[string]int
}

// NormalizeName applies the column-name convention: trim, lower-case, spaces to underscores.
func NormalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// NewTable builds a table from a header and string records.
func NewTable(name string, header []string, records [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	t := &Table{Name: name, index: make(map[string]int, len(header))}
	for i, h := range header {
		n := NormalizeName(h)
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if j, dup := t.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q (headers %d and %d)", n, j+1, i+1)
		}
		t.index[n] = i
		t.Columns = append(t.Columns, n)
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	ncol := len(t.Columns)
	t.values = make([][]float64, ncol)
	nonNumeric := make([]int, ncol)
	for ri, rec := range records {
		if ri >= maxRows {
			t.Warnings = append(t.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", maxRows, len(records)))
			break
		}
		if blankRecord(rec) {
			continue
		}
		t.Rows++
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			x := math.NaN()
			if !isMissingToken(v) {
				if f, ok := parseNumeric(v, opt); ok && !math.IsInf(f, 0) {
					x = f
				} else {
					nonNumeric[j]++
				}
			}
			t.values[j] = append(t.values[j], x)
		}
	}
	for j, cnt := range nonNumeric {
		// text columns (ids, labels) are expected; only flag mixed ones
		if cnt > 0 && cnt < t.Rows {
			t.Warnings = append(t.Warnings, fmt.Sprintf("column %s: %d non-numeric cell(s) treated as missing", t.Columns[j], cnt))
		}
	}
	return t, nil
}

// FromColumns builds a table directly from numeric columns of equal length.
func FromColumns(name string, columns []string, values [][]float64) (*Table, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(columns), len(values))
	}
	t := &Table{Name: name, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		n := NormalizeName(c)
		if _, dup := t.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		if i > 0 && len(values[i]) != len(values[0]) {
			return nil, fmt.Errorf("column %q has %d rows, want %d", n, len(values[i]), len(values[0]))
		}
		t.index[n] = i
		t.Columns = append(t.Columns, n)
		t.values = append(t.values, append([]float64(nil), values[i]...))
	}
	if len(values) > 0 {
		t.Rows = len(values[0])
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Has reports whether a (normalized) column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[NormalizeName(name)]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[NormalizeName(name)]
	if !ok {
		return nil, &MissingColumnsError{Missing: []string{NormalizeName(name)}}
	}
	return append([]float64(nil), t.values[i]...), nil
}

// Require validates that every name exists, reporting all absent names at once
// in the order given.
func (t *Table) Require(names ...string) error {
	var missing []string
	seen := map[string]bool{}
	for _, n := range names {
		n = NormalizeName(n)
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := t.index[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing, Available: append([]string(nil), t.Columns...)}
	}
	return nil
}

// CompleteRows returns the indices of rows where every named column is non-missing.
// This is the listwise mask shared by steps that must agree on sample size.
func (t *Table) CompleteRows(names ...string) ([]int, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i] = t.values[t.index[NormalizeName(n)]]
	}
	var rows []int
	for r := 0; r < t.Rows; r++ {
		ok := true
		for _, c := range cols {
			if math.IsNaN(c[r]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Subset returns the named columns restricted to rows, column-major.
func (t *Table) Subset(rows []int, names ...string) ([][]float64, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	out := make([][]float64, len(names))
	for i, n := range names {
		src := t.values[t.index[NormalizeName(n)]]
		col := make([]float64, len(rows))
		for k, r := range rows {
			col[k] = src[r]
		}
		out[i] = col
	}
	return out, nil
}
