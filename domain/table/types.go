package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format tags the on-disk representation of a data file.
type Format string

const (
	FormatDelimited         Format = "delimited"          // .csv
	FormatSpreadsheetLegacy Format = "spreadsheet-legacy" // .xls
	FormatSpreadsheet       Format = "spreadsheet"        // .xlsx
	FormatRecords           Format = "records"            // .json array-of-objects
)

// DetectFormat maps a file extension to its format tag. The second return
// is false for extensions outside the recognized set.
func DetectFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatDelimited, true
	case ".xls":
		return FormatSpreadsheetLegacy, true
	case ".xlsx":
		return FormatSpreadsheet, true
	case ".json":
		return FormatRecords, true
	}
	return "", false
}

// TableFile references one data file on disk. Immutable; it is only passed
// between pipeline stages, never mutated.
type TableFile struct {
	Path   string
	Format Format
}

// Name returns the base file name.
func (f TableFile) Name() string {
	return filepath.Base(f.Path)
}

// Stem returns the base file name without its extension.
func (f TableFile) Stem() string {
	name := f.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Kind is the inferred semantic kind of a column, decided once at load time.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// Column is a tagged union over the two column kinds. Numeric columns carry
// coerced values plus a parallel missing mask (the explicit absent marker);
// text columns carry raw cell strings.
type Column struct {
	Name string
	Kind Kind

	// Numeric representation. Numbers and Missing have identical length;
	// Numbers[i] is meaningless where Missing[i] is true.
	Numbers []float64
	Missing []bool

	// Text representation.
	Text []string
}

// NumericColumn builds a numeric column from coerced values and their
// missing mask.
func NumericColumn(name string, numbers []float64, missing []bool) Column {
	return Column{Name: name, Kind: KindNumeric, Numbers: numbers, Missing: missing}
}

// TextColumn builds a text column from raw cell values.
func TextColumn(name string, values []string) Column {
	return Column{Name: name, Kind: KindText, Text: values}
}

// Len returns the row count of the column.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Numbers)
	}
	return len(c.Text)
}

// Values returns the coercible (non-missing) numeric values in row order.
// Empty for text columns.
func (c Column) Values() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	values := make([]float64, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if !c.Missing[i] {
			values = append(values, v)
		}
	}
	return values
}

// MissingCount returns the number of absent cells. Empty strings count as
// missing for text columns.
func (c Column) MissingCount() int {
	count := 0
	if c.Kind == KindNumeric {
		for _, m := range c.Missing {
			if m {
				count++
			}
		}
		return count
	}
	for _, v := range c.Text {
		if v == "" {
			count++
		}
	}
	return count
}

// MissingFraction returns the fraction of absent cells, 0 for empty columns.
func (c Column) MissingFraction() float64 {
	n := c.Len()
	if n == 0 {
		return 0
	}
	return float64(c.MissingCount()) / float64(n)
}

// DataTable is a rectangular, ordered collection of named columns.
type DataTable struct {
	columns []Column
}

// New validates the table invariants: column names unique, row count
// identical across all columns.
func New(columns []Column) (*DataTable, error) {
	seen := make(map[string]bool, len(columns))
	rows := -1
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column name cannot be empty")
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		seen[col.Name] = true
		if rows == -1 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", col.Name, col.Len(), rows)
		}
	}
	return &DataTable{columns: columns}, nil
}

// RowCount returns the number of rows shared by every column.
func (t *DataTable) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// ColumnCount returns the number of columns.
func (t *DataTable) ColumnCount() int {
	return len(t.columns)
}

// Columns returns the columns in table order.
func (t *DataTable) Columns() []Column {
	return t.columns
}

// Column looks a column up by name.
func (t *DataTable) Column(name string) (Column, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// NumericColumns returns the numeric columns in table order.
func (t *DataTable) NumericColumns() []Column {
	var numeric []Column
	for _, col := range t.columns {
		if col.Kind == KindNumeric {
			numeric = append(numeric, col)
		}
	}
	return numeric
}
