// Package table implements a small in-memory columnar table: an ordered
// collection of named, typed columns with per-row validity. Tables are
// treated as immutable; transformations return new tables that share
// unchanged columns with their input.
package table

import (
	"fmt"
	"strconv"
)

// Kind enumerates supported column types.
type Kind int

const (
	Float64 Kind = iota
	Int64
	String
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Column is a single named column. Exactly one of the value slices is
// populated, matching Kind. A nil validity slice means every row is valid.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Ints    []int64
	Strings []string
	valid   []bool
}

// NewFloat64 builds a float64 column with all rows valid.
func NewFloat64(name string, vals []float64) *Column {
	return &Column{Name: name, Kind: Float64, Floats: vals}
}

// NewFloat64Nullable builds a float64 column with the given validity mask.
func NewFloat64Nullable(name string, vals []float64, valid []bool) *Column {
	return &Column{Name: name, Kind: Float64, Floats: vals, valid: valid}
}

// NewInt64 builds an int64 column with all rows valid.
func NewInt64(name string, vals []int64) *Column {
	return &Column{Name: name, Kind: Int64, Ints: vals}
}

// NewInt64Nullable builds an int64 column with the given validity mask.
func NewInt64Nullable(name string, vals []int64, valid []bool) *Column {
	return &Column{Name: name, Kind: Int64, Ints: vals, valid: valid}
}

// NewString builds a string column with all rows valid.
func NewString(name string, vals []string) *Column {
	return &Column{Name: name, Kind: String, Strings: vals}
}

// NewStringNullable builds a string column with the given validity mask.
func NewStringNullable(name string, vals []string, valid []bool) *Column {
	return &Column{Name: name, Kind: String, Strings: vals, valid: valid}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Float64:
		return len(c.Floats)
	case Int64:
		return len(c.Ints)
	default:
		return len(c.Strings)
	}
}

// IsValid reports whether row i holds a value.
func (c *Column) IsValid(i int) bool {
	return c.valid == nil || c.valid[i]
}

// NullCount returns the number of invalid rows.
func (c *Column) NullCount() int {
	if c.valid == nil {
		return 0
	}
	n := 0
	for _, v := range c.valid {
		if !v {
			n++
		}
	}
	return n
}

// Number returns the value at row i as a float64. Int64 columns are widened;
// calling Number on a string column panics.
func (c *Column) Number(i int) float64 {
	switch c.Kind {
	case Float64:
		return c.Floats[i]
	case Int64:
		return float64(c.Ints[i])
	default:
		panic(fmt.Sprintf("column %s: Number on string column", c.Name))
	}
}

// IsNumeric reports whether the column holds float64 or int64 values.
func (c *Column) IsNumeric() bool {
	return c.Kind == Float64 || c.Kind == Int64
}

// Key returns the value at row i rendered as a string, for use in group keys
// and joins. Invalid rows render as an empty marker distinct from any value.
func (c *Column) Key(i int) string {
	if !c.IsValid(i) {
		return "\x00null"
	}
	switch c.Kind {
	case Float64:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case Int64:
		return strconv.FormatInt(c.Ints[i], 10)
	default:
		return c.Strings[i]
	}
}

// take returns a new column holding the given rows in order.
func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.valid != nil {
		out.valid = make([]bool, len(rows))
		for j, i := range rows {
			out.valid[j] = c.valid[i]
		}
	}
	switch c.Kind {
	case Float64:
		out.Floats = make([]float64, len(rows))
		for j, i := range rows {
			out.Floats[j] = c.Floats[i]
		}
	case Int64:
		out.Ints = make([]int64, len(rows))
		for j, i := range rows {
			out.Ints[j] = c.Ints[i]
		}
	default:
		out.Strings = make([]string, len(rows))
		for j, i := range rows {
			out.Strings[j] = c.Strings[i]
		}
	}
	return out
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	cols  []*Column
	index map[string]int
}

// New builds a table from columns, validating lengths and name uniqueness.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	rows := -1
	for _, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if rows == -1 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), rows)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// NumRows returns the row count; an empty table has zero rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Col returns the named column, or false if absent.
func (t *Table) Col(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Columns returns the columns in order. Callers must not mutate them.
func (t *Table) Columns() []*Column {
	return t.cols
}

// WithColumn returns a new table with the column appended, or replaced in
// place if a column of the same name already exists. Existing columns are
// shared, not copied.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if t.NumCols() > 0 && c.Len() != t.NumRows() {
		return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.NumRows())
	}

	out := &Table{
		cols:  make([]*Column, len(t.cols)),
		index: make(map[string]int, len(t.cols)+1),
	}
	copy(out.cols, t.cols)
	for name, i := range t.index {
		out.index[name] = i
	}

	if i, ok := out.index[c.Name]; ok {
		out.cols[i] = c
	} else {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out, nil
}

// Take returns a new table holding the given rows in order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		cols:  make([]*Column, len(t.cols)),
		index: make(map[string]int, len(t.cols)),
	}
	for i, c := range t.cols {
		out.cols[i] = c.take(rows)
		out.index[c.Name] = i
	}
	return out
}
