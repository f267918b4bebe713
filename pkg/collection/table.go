package collection

import "sort"

// Row is one labelled row of a Table, keyed by column name.
type Row map[string]interface{}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValueColumn is the column a Table puts non-Row map results under.
const ValueColumn = "value"

// Table is a tabular collection whose rows are indexed by label. Row and
// column order are both preserved. The zero value is not usable; create one
// with NewTable.
type Table struct {
	labels  []string
	columns []string
	rows    map[string]Row
	missing map[string]bool
}

// NewTable creates an empty table with the given initial columns.
func NewTable(columns ...string) *Table {
	t := &Table{
		rows:    make(map[string]Row),
		missing: make(map[string]bool),
	}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) {
	for _, c := range t.columns {
		if c == name {
			return
		}
	}
	t.columns = append(t.columns, name)
}

// AddRow stores row under label. Unknown columns are appended to the column
// order; a repeated label replaces the previous row in place.
func (t *Table) AddRow(label string, row Row) {
	if _, ok := t.rows[label]; !ok {
		t.labels = append(t.labels, label)
	}
	t.rows[label] = row.clone()
	delete(t.missing, label)
	for _, c := range sortedColumns(row, t.columns) {
		t.addColumn(c)
	}
}

// Row returns the row stored under label.
func (t *Table) Row(label string) (Row, bool) {
	r, ok := t.rows[label]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Cell returns the value at (label, column). Columns a row lacks read as nil.
func (t *Table) Cell(label, column string) (interface{}, bool) {
	r, ok := t.rows[label]
	if !ok {
		return nil, false
	}
	return r[column], true
}

// Missing reports whether the row under label was filled with placeholders
// by Rebuild.
func (t *Table) Missing(label string) bool {
	return t.missing[label]
}

// Labels returns the row labels in order.
func (t *Table) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Kind() Kind { return KindTable }

func (t *Table) Len() int { return len(t.labels) }

// Pairs returns (label, Row) pairs in row order.
func (t *Table) Pairs() []Pair {
	pairs := make([]Pair, len(t.labels))
	for i, l := range t.labels {
		pairs[i] = Pair{Key: l, Value: t.rows[l].clone()}
	}
	return pairs
}

// Rebuild returns a table reindexed to the receiver's row labels. Results
// that are a Row or map[string]interface{} become the row; any other value
// is stored under ValueColumn. Columns are collected from the results in row
// order. Labels without a result become rows of placeholders.
func (t *Table) Rebuild(results map[interface{}]interface{}) Collection {
	out := NewTable()

	for _, l := range t.labels {
		v, ok := results[l]
		if !ok || IsPlaceholder(v) {
			continue
		}
		out.rows[l] = asRow(v)
		for _, c := range sortedColumns(out.rows[l], out.columns) {
			out.addColumn(c)
		}
	}

	for _, l := range t.labels {
		out.labels = append(out.labels, l)
		if _, ok := out.rows[l]; ok {
			continue
		}
		row := make(Row, len(out.columns))
		for _, c := range out.columns {
			row[c] = Placeholder
		}
		out.rows[l] = row
		out.missing[l] = true
	}

	return out
}

func asRow(v interface{}) Row {
	switch r := v.(type) {
	case Row:
		return r.clone()
	case map[string]interface{}:
		return Row(r).clone()
	default:
		return Row{ValueColumn: v}
	}
}

// sortedColumns returns the columns of row not in known, sorted so that
// column discovery is deterministic despite map iteration order.
func sortedColumns(row Row, known []string) []string {
	seen := make(map[string]bool, len(known))
	for _, c := range known {
		seen[c] = true
	}
	var fresh []string
	for c := range row {
		if !seen[c] {
			fresh = append(fresh, c)
		}
	}
	sort.Strings(fresh)
	return fresh
}
