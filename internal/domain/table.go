package domain

import "fmt"

// ColumnType is the inferred storage type of a table column.
type ColumnType string

const (
	ColumnTypeBigint    ColumnType = "bigint"
	ColumnTypeDouble    ColumnType = "double"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeText      ColumnType = "text"
	ColumnTypeTimestamp ColumnType = "timestamp"
)

// Column describes one column of a Table.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an in-memory tabular value. Row values are int64, float64, bool, string,
// time.Time or nil
// and are aligned with Columns.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// WithColumn returns a new table with col appended and values as its cells.
// The receiver is left untouched.
func (t Table) WithColumn(col Column, values []any) (Table, error) {
	if len(values) != len(t.Rows) {
		return Table{}, fmt.Errorf("column %s has %d values for %d rows", col.Name, len(values), len(t.Rows))
	}

	columns := make([]Column, len(t.Columns), len(t.Columns)+1)
	copy(columns, t.Columns)
	columns = append(columns, col)

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		next := make([]any, len(row), len(row)+1)
		copy(next, row)
		rows[i] = append(next, values[i])
	}

	return Table{Columns: columns, Rows: rows}, nil
}
