package caltable

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrNoTable is generated when a VOTable document holds no TABLEDATA table
var ErrNoTable = errors.New("caltable: no TABLEDATA table in VOTable")

type voTable struct {
	Resources []voResource `xml:"RESOURCE"`
}

type voResource struct {
	Tables    []voTableElem `xml:"TABLE"`
	Resources []voResource  `xml:"RESOURCE"`
}

type voTableElem struct {
	Name   string    `xml:"name,attr"`
	Fields []voField `xml:"FIELD"`
	Rows   []voRow   `xml:"DATA>TABLEDATA>TR"`
}

type voField struct {
	Name string `xml:"name,attr"`
	Unit string `xml:"unit,attr"`
}

type voRow struct {
	Cells []string `xml:"TD"`
}

// ReadVOTable parses the first TABLEDATA table of a VOTable document, as
// served for filter transmission curves.  Only numeric cells are supported;
// an empty cell reads as zero.
func ReadVOTable(r io.Reader) (*Table, error) {
	var doc voTable
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	elem, ok := firstTable(doc.Resources)
	if !ok {
		return nil, ErrNoTable
	}
	t := &Table{
		Names:   make([]string, len(elem.Fields)),
		Columns: make([][]float64, len(elem.Fields)),
	}
	for i, f := range elem.Fields {
		t.Names[i] = f.Name
	}
	for ri, row := range elem.Rows {
		if len(row.Cells) != len(elem.Fields) {
			return nil, fmt.Errorf("caltable: VOTable row %d has %d cells, expected %d", ri, len(row.Cells), len(elem.Fields))
		}
		for ci, cell := range row.Cells {
			cell = strings.TrimSpace(cell)
			var v float64
			if cell != "" {
				var err error
				v, err = strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("caltable: VOTable row %d field %s: %w", ri, elem.Fields[ci].Name, err)
				}
			}
			t.Columns[ci] = append(t.Columns[ci], v)
		}
	}
	if t.Rows() == 0 {
		return nil, ErrNoData
	}
	return t, nil
}

// LoadVOTable reads a VOTable from disk
func LoadVOTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadVOTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func firstTable(rs []voResource) (voTableElem, bool) {
	for _, r := range rs {
		for _, t := range r.Tables {
			if len(t.Fields) > 0 {
				return t, true
			}
		}
		if t, ok := firstTable(r.Resources); ok {
			return t, true
		}
	}
	return voTableElem{}, false
}
