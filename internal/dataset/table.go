package dataset

import (
	"fmt"
	"slices"
)

// ColumnType is the logical type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt
	TypeFloat
	TypeDate
	TypeStringList
	TypeIntList
)

func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeDate:
		return "date"
	case TypeStringList:
		return "string list"
	case TypeIntList:
		return "int list"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Field names a column and its type.
type Field struct {
	Name string
	Type ColumnType
}

// Column is one named, typed column. Values holds string, int64, float64,
// time.Time, []string or []int64 according to Type, or nil for null.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

// Table is a named column-major table.
type Table struct {
	Name    string
	columns []*Column
	rows    int
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// Columns returns the columns in order.
func (t *Table) Columns() []*Column { return t.columns }

// Fields returns the schema of the table.
func (t *Table) Fields() []Field {
	fields := make([]Field, len(t.columns))
	for i, col := range t.columns {
		fields[i] = Field{Name: col.Name, Type: col.Type}
	}
	return fields
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	idx := t.indexOf(name)
	if idx < 0 {
		return nil, false
	}
	return t.columns[idx], true
}

func (t *Table) indexOf(name string) int {
	return slices.IndexFunc(t.columns, func(c *Column) bool { return c.Name == name })
}

// SetColumn adds the column, or replaces an existing one of the same name in
// place. The first column fixes the row count.
func (t *Table) SetColumn(name string, typ ColumnType, values []any) error {
	if len(t.columns) > 0 && len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table %q has %d rows", name, len(values), t.Name, t.rows)
	}
	col := &Column{Name: name, Type: typ, Values: values}
	if idx := t.indexOf(name); idx >= 0 {
		t.columns[idx] = col
		return nil
	}
	if len(t.columns) == 0 {
		t.rows = len(values)
	}
	t.columns = append(t.columns, col)
	return nil
}

func (t *Table) require(name string, types ...ColumnType) (*Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("table %q has no column %q", t.Name, name)
	}
	if len(types) > 0 && !slices.Contains(types, col.Type) {
		return nil, fmt.Errorf("column %q is %s, want %s", name, col.Type, types[0])
	}
	return col, nil
}

// Project returns a new table holding only the named columns, in that order.
// Column value slices are shared with t.
func (t *Table) Project(name string, columns ...string) (*Table, error) {
	out := NewTable(name)
	for _, colName := range columns {
		col, err := t.require(colName)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(col.Name, col.Type, col.Values); err != nil {
			return nil, err
		}
	}
	out.rows = t.rows
	return out, nil
}

// Rename renames a column.
func (t *Table) Rename(from, to string) error {
	col, err := t.require(from)
	if err != nil {
		return err
	}
	if from != to && t.indexOf(to) >= 0 {
		return fmt.Errorf("table %q already has a column %q", t.Name, to)
	}
	col.Name = to
	return nil
}

// Clone deep-copies the column value slices so the copy can be mutated.
func (t *Table) Clone(name string) *Table {
	out := &Table{Name: name, rows: t.rows, columns: make([]*Column, len(t.columns))}
	for i, col := range t.columns {
		out.columns[i] = &Column{Name: col.Name, Type: col.Type, Values: slices.Clone(col.Values)}
	}
	return out
}

// StringAt returns cell i of a string column, or "" for null.
func (c *Column) StringAt(i int) string {
	s, _ := c.Values[i].(string)
	return s
}

// IntAt returns cell i of an int column and whether it was non-null.
func (c *Column) IntAt(i int) (int64, bool) {
	v, ok := c.Values[i].(int64)
	return v, ok
}

// FloatAt returns cell i of a float column, or 0 for null.
func (c *Column) FloatAt(i int) float64 {
	v, _ := c.Values[i].(float64)
	return v
}
