package collection

// Fill returns a copy of c with every placeholder entry replaced by value.
// A table row without a result becomes a row holding value in every
// column, or under ValueColumn when the table has no columns.
func Fill(c Collection, value interface{}) Collection {
	failed := make(map[interface{}]bool)
	for _, k := range PlaceholderKeys(c) {
		failed[k] = true
	}

	results := make(map[interface{}]interface{}, c.Len())
	for _, p := range c.Pairs() {
		if !failed[p.Key] {
			results[p.Key] = p.Value
			continue
		}
		if t, ok := c.(*Table); ok && len(t.columns) > 0 {
			row := make(Row, len(t.columns))
			for _, col := range t.columns {
				row[col] = value
			}
			results[p.Key] = row
			continue
		}
		results[p.Key] = value
	}
	return c.Rebuild(results)
}

// Filter returns a collection of the same kind holding only the entries
// for which keep returns true, in their original order. Sequence positions
// are renumbered.
func Filter(c Collection, keep func(key, value interface{}) bool) Collection {
	switch src := c.(type) {
	case Sequence:
		out := Sequence{}
		for i, v := range src {
			if keep(i, v) {
				out = append(out, v)
			}
		}
		return out
	case *Mapping:
		out := NewMapping()
		for _, k := range src.keys {
			if keep(k, src.values[k]) {
				out.Set(k, src.values[k])
			}
		}
		return out
	case *Table:
		out := NewTable(src.columns...)
		for _, l := range src.labels {
			row := src.rows[l]
			if !keep(l, row.clone()) {
				continue
			}
			out.AddRow(l, row)
			if src.missing[l] {
				out.missing[l] = true
			}
		}
		return out
	}

	// Other Collection implementations can only be narrowed through Rebuild,
	// which keeps every key.
	results := make(map[interface{}]interface{}, c.Len())
	for _, p := range c.Pairs() {
		if keep(p.Key, p.Value) {
			results[p.Key] = p.Value
		}
	}
	return c.Rebuild(results)
}
