package collection

import "sort"

// Mapping is an associative container that remembers key insertion order.
// The zero value is not usable; create one with NewMapping.
type Mapping struct {
	keys   []string
	values map[string]interface{}
}

// NewMapping creates an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]interface{})}
}

// MappingFromMap creates a Mapping from m with keys in sorted order.
func MappingFromMap(m map[string]interface{}) *Mapping {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := NewMapping()
	for _, k := range keys {
		out.Set(k, m[k])
	}
	return out
}

// Set stores value under key. New keys are appended to the key order.
func (m *Mapping) Set(key string, value interface{}) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in order.
func (m *Mapping) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *Mapping) Kind() Kind { return KindMapping }

func (m *Mapping) Len() int { return len(m.keys) }

func (m *Mapping) Pairs() []Pair {
	pairs := make([]Pair, len(m.keys))
	for i, k := range m.keys {
		pairs[i] = Pair{Key: k, Value: m.values[k]}
	}
	return pairs
}

// Rebuild returns a Mapping with the same keys in the same order.
func (m *Mapping) Rebuild(results map[interface{}]interface{}) Collection {
	out := &Mapping{
		keys:   m.Keys(),
		values: make(map[string]interface{}, len(m.keys)),
	}
	for _, k := range m.keys {
		if v, ok := results[k]; ok {
			out.values[k] = v
		} else {
			out.values[k] = Placeholder
		}
	}
	return out
}
