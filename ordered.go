package linkml

import "sort"

// OrderedMap preserves insertion order for iteration (deterministic code
// generation and diagnostics) while giving O(1) lookup by key, matching
// the teacher's SchemaMap container shape (component A).
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set inserts or overwrites the value at key, appending key to the
// iteration order only the first time it is seen.
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value at key and whether it was present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, preserving the relative order of remaining keys.
func (m *OrderedMap[V]) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len reports the number of entries.
func (m *OrderedMap[V]) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The caller must not mutate the
// returned slice.
func (m *OrderedMap[V]) Keys() []string { return m.keys }

// SortedKeys returns the keys sorted lexicographically, used by
// canonical-traversal fingerprinting so declaration order never affects a
// hash.
func (m *OrderedMap[V]) SortedKeys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	sort.Strings(out)
	return out
}

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (m *OrderedMap[V]) Range(fn func(key string, value V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}
