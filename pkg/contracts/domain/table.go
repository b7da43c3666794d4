package domain

// Table is a labeled two-dimensional result ready for rendering or export
type Table struct {
	Name      string     `json:"name"`
	IndexName string     `json:"index_name"`
	Index     []string   `json:"index"`
	Columns   []string   `json:"columns"`
	Rows      [][]Number `json:"rows"`
}

// NewTable creates an empty table with the given headers
func NewTable(name, indexName string, columns ...string) *Table {
	return &Table{
		Name:      name,
		IndexName: indexName,
		Index:     []string{},
		Columns:   columns,
		Rows:      [][]Number{},
	}
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// AppendRow adds one index label and its values
func (t *Table) AppendRow(label string, values ...Number) {
	t.Index = append(t.Index, label)
	t.Rows = append(t.Rows, values)
}

// Column returns the values of a named column, or nil
func (t *Table) Column(name string) []Number {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]Number, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		} else {
			out[i] = NaN()
		}
	}
	return out
}
