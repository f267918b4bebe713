package collection

import (
	"fmt"
	"reflect"
	"sort"

	mferrors "github.com/ghdlab/mapflow/pkg/common/errors"
)

// Kind identifies the container category of a Collection.
type Kind int

const (
	// KindSequence is an ordered sequence keyed by position.
	KindSequence Kind = iota
	// KindMapping is an associative mapping with ordered string keys.
	KindMapping
	// KindTable is a tabular structure with labelled rows.
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindTable:
		return "table"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Pair is one (key, value) element of a Collection.
type Pair struct {
	Key   interface{}
	Value interface{}
}

// Collection is a finite keyed container with a stable key order.
type Collection interface {
	// Kind returns the container category.
	Kind() Kind

	// Len returns the number of entries.
	Len() int

	// Pairs returns all entries in key order.
	Pairs() []Pair

	// Rebuild returns a new collection of the same Kind and key order whose
	// values come from results. Keys absent from results hold Placeholder.
	Rebuild(results map[interface{}]interface{}) Collection
}

type placeholder struct{}

func (placeholder) String() string { return "<placeholder>" }

// Placeholder stands in for a key whose value could not be produced.
var Placeholder interface{} = placeholder{}

// IsPlaceholder reports whether v is the Placeholder sentinel.
func IsPlaceholder(v interface{}) bool {
	_, ok := v.(placeholder)
	return ok
}

// PlaceholderKeys returns the keys of c holding Placeholder, in key order.
// Table rows count when Rebuild had no result for them.
func PlaceholderKeys(c Collection) []interface{} {
	var keys []interface{}
	for _, p := range c.Pairs() {
		if IsPlaceholder(p.Value) {
			keys = append(keys, p.Key)
			continue
		}
		if t, ok := c.(*Table); ok {
			if t.Missing(p.Key.(string)) {
				keys = append(keys, p.Key)
			}
			continue
		}
	}
	return keys
}

// From turns v into a Collection. Capabilities are probed once, richest
// first: a value that already is a Collection (including a Table) is used
// as-is, string-keyed maps become a Mapping with sorted keys, and slices or
// arrays become a Sequence. Anything else is an InvalidInputError.
func From(v interface{}) (Collection, error) {
	switch c := v.(type) {
	case nil:
		return nil, mferrors.NewInvalidInputError("collection", v, "nil is not a keyed collection")
	case Collection:
		if rv := reflect.ValueOf(c); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil, mferrors.NewInvalidInputError("collection", v, "nil collection")
		}
		return c, nil
	case map[string]interface{}:
		return MappingFromMap(c), nil
	case []interface{}:
		return NewSequence(c...), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, mferrors.NewInvalidInputError("collection", v, "map keys must be strings")
		}
		keys := make([]string, 0, rv.Len())
		values := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			keys = append(keys, k)
			values[k] = iter.Value().Interface()
		}
		sort.Strings(keys)
		m := NewMapping()
		for _, k := range keys {
			m.Set(k, values[k])
		}
		return m, nil
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return NewSequence(items...), nil
	}

	return nil, mferrors.NewInvalidInputError("collection", v, "cannot enumerate (key, value) pairs")
}
