package caltable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrColumnNotFound is generated when a named column is absent from a Table
type ErrColumnNotFound struct {
	// Column is the name that was looked up
	Column string

	// Have lists the columns the table does hold
	Have []string
}

// Error satisfies the error interface
func (e ErrColumnNotFound) Error() string {
	return fmt.Sprintf("caltable: column %q not found, table has %v", e.Column, e.Have)
}

// ErrNoData is generated when a file holds a header but no rows
var ErrNoData = errors.New("caltable: table has no data rows")

// Table is a column oriented numeric table
type Table struct {
	// Names holds the column names.  Headerless files get "col0", "col1", ...
	Names []string

	// Columns holds one slice per column, all the same length
	Columns [][]float64
}

// Column returns the column with the given name, compared case-insensitively
// and ignoring surrounding whitespace
func (t *Table) Column(name string) ([]float64, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, n := range t.Names {
		if strings.ToLower(strings.TrimSpace(n)) == want {
			return t.Columns[i], nil
		}
	}
	return nil, ErrColumnNotFound{Column: name, Have: t.Names}
}

// Rows is the number of data rows
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Curve builds a curve from columns xi and yi, scaling x by xScale.
// An xScale of 0 is treated as 1.
func (t *Table) Curve(xi, yi int, xScale float64, extra Extrapolation) (*Curve, error) {
	if xi >= len(t.Columns) || yi >= len(t.Columns) {
		return nil, fmt.Errorf("caltable: column index out of range, table has %d columns", len(t.Columns))
	}
	if xScale == 0 {
		xScale = 1
	}
	x := make([]float64, len(t.Columns[xi]))
	for i, v := range t.Columns[xi] {
		x[i] = v * xScale
	}
	return NewCurve(x, t.Columns[yi], extra)
}

// ReadCSV parses comma separated numeric data.  If the first record does not
// parse as numbers it is taken as the header.  Lines starting with # are
// comments.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	t := &Table{}
	first := true
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if first {
			first = false
			t.Columns = make([][]float64, len(record))
			if !numeric(record) {
				t.Names = append([]string(nil), record...)
				continue
			}
			t.Names = make([]string, len(record))
			for i := range t.Names {
				t.Names[i] = "col" + strconv.Itoa(i)
			}
		}
		for i := 0; i < len(record) && i < len(t.Columns); i++ {
			f, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("caltable: line %d column %d: %w", line, i, err)
			}
			t.Columns[i] = append(t.Columns[i], f)
		}
	}
	if t.Rows() == 0 {
		return nil, ErrNoData
	}
	return t, nil
}

// LoadCSV reads a CSV table from disk
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func numeric(record []string) bool {
	for _, s := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return false
		}
	}
	return true
}
