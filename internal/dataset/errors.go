package dataset

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the input file (or a workbook inside an input directory) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFormat indicates an input extension the loader cannot read.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrEmpty indicates a sheet or file with no header row.
	ErrEmpty = errors.New("dataset has no header row")
)

// MissingColumnsError lists every required column absent from a table.
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	label := "missing column"
	if len(e.Missing) > 1 {
		label = "missing columns"
	}
	msg := label + ": " + strings.Join(e.Missing, ", ")
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}
