package storage

// Keep selects which copies of a duplicated key survive DropDuplicates.
type Keep int

const (
	// KeepFirst keeps the first row of every key.
	KeepFirst Keep = iota
	// KeepNone drops every row whose key appears more than once.
	KeepNone
)

// DropDuplicates returns a copy of t without duplicate values in column c,
// and how many rows were dropped. Rows with an empty key are kept.
func DropDuplicates(t *Table, c string, keep Keep) (*Table, int) {
	counts := make(map[string]int)
	for _, v := range t.Column(c) {
		counts[v]++
	}

	out := NewTable(t.Name, t.Columns()...)
	seen := make(map[string]bool)
	dropped := 0
	for _, r := range t.Rows() {
		v := r.Value(c)
		switch {
		case v == "":
		case keep == KeepNone && counts[v] > 1:
			dropped++
			continue
		case keep == KeepFirst && seen[v]:
			dropped++
			continue
		}
		seen[v] = true
		out.Append(r)
	}
	return out, dropped
}
