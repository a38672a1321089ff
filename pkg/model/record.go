package model

import "sort"

// Record is an insertion-ordered string map. Column order in output tables
// follows the order fields were first set.
type Record struct {
	keys   []string
	values map[string]string
}

func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// RecordFrom builds a record from parallel key/value slices.
func RecordFrom(keys, values []string) *Record {
	r := NewRecord()
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetDefault sets key only when it is not present yet. Reports whether the
// value was written.
func (r *Record) SetDefault(key, value string) bool {
	if r.Has(key) {
		return false
	}
	r.Set(key, value)
	return true
}

func (r *Record) Get(key string) (string, bool) {
	if r == nil || r.values == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key or "" when absent.
func (r *Record) Value(key string) string {
	v, _ := r.Get(key)
	return v
}

func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// SortedKeys is mostly useful in tests and logs.
func (r *Record) SortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Merge copies fields from other that r does not already carry and returns
// the names that were skipped because r already had them.
func (r *Record) Merge(other *Record) (skipped []string) {
	if other == nil {
		return nil
	}
	for _, k := range other.keys {
		if !r.SetDefault(k, other.values[k]) {
			skipped = append(skipped, k)
		}
	}
	return skipped
}

// Map returns a copy of the record as a plain map.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, r.Len())
	for _, k := range r.Keys() {
		out[k] = r.values[k]
	}
	return out
}
