// Package ordered provides an insertion-ordered string-keyed map.
//
// It is the common storage behind hash levels, node attributes and schema
// levels: keys are unique, iteration follows insertion order, and replacing
// the value of an existing key keeps its position.
package ordered

import "iter"

type entry[V any] struct {
	key   string
	value V
}

// Map is an insertion-ordered map. The zero value is ready to use.
// Map is not safe for concurrent mutation.
type Map[V any] struct {
	entries []entry[V]
	index   map[string]int
}

// New creates an empty map with room for n entries.
func New[V any](n int) *Map[V] {
	return &Map[V]{
		entries: make([]entry[V], 0, n),
		index:   make(map[string]int, n),
	}
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[key]
	return ok
}

// Get returns the value for key.
func (m *Map[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	i, ok := m.index[key]
	if !ok {
		return zero, false
	}
	return m.entries[i].value, true
}

// Set inserts key at the end, or replaces its value in place.
// It reports whether the key was newly inserted.
func (m *Map[V]) Set(key string, value V) bool {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].value = value
		return false
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry[V]{key: key, value: value})
	return true
}

// Delete removes key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	if m == nil {
		return false
	}
	i, ok := m.index[key]
	if !ok {
		return false
	}
	copy(m.entries[i:], m.entries[i+1:])
	var zero entry[V]
	m.entries[len(m.entries)-1] = zero
	m.entries = m.entries[:len(m.entries)-1]
	delete(m.index, key)
	for j := i; j < len(m.entries); j++ {
		m.index[m.entries[j].key] = j
	}
	return true
}

// Position returns the insertion position of key, or -1.
func (m *Map[V]) Position(key string) int {
	if m == nil {
		return -1
	}
	if i, ok := m.index[key]; ok {
		return i
	}
	return -1
}

// Keys returns the keys in insertion order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// All iterates entries in insertion order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Clone returns a copy with every value passed through fn.
// A nil fn copies values as they are.
func (m *Map[V]) Clone(fn func(V) V) *Map[V] {
	out := New[V](m.Len())
	if m == nil {
		return out
	}
	for _, e := range m.entries {
		v := e.value
		if fn != nil {
			v = fn(v)
		}
		out.Set(e.key, v)
	}
	return out
}

// Clear removes all entries.
func (m *Map[V]) Clear() {
	m.entries = m.entries[:0]
	m.index = make(map[string]int)
}
