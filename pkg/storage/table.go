package storage

import "ytmeta-go/pkg/model"

// Table is a named set of records sharing one column order. Columns are the
// union of every appended record's keys in first-seen order; a record
// missing a column is written with an empty cell.
type Table struct {
	Name string

	columns []string
	known   map[string]bool
	rows    []*model.Record
}

// NewTable creates a table whose first columns are fixed to leading.
func NewTable(name string, leading ...string) *Table {
	t := &Table{Name: name, known: make(map[string]bool)}
	for _, c := range leading {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(c string) {
	if t.known[c] {
		return
	}
	t.known[c] = true
	t.columns = append(t.columns, c)
}

// Append adds records, skipping nil ones.
func (t *Table) Append(records ...*model.Record) {
	for _, r := range records {
		if r == nil {
			continue
		}
		for _, k := range r.Keys() {
			t.addColumn(k)
		}
		t.rows = append(t.rows, r)
	}
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) HasColumn(c string) bool { return t.known[c] }

func (t *Table) Rows() []*model.Record { return t.rows }

func (t *Table) Len() int { return len(t.rows) }

// Values returns the row as cells in column order.
func (t *Table) Values(r *model.Record) []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = r.Value(c)
	}
	return out
}

// Column returns every row's value for c.
func (t *Table) Column(c string) []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Value(c)
	}
	return out
}
