package collection

// Sequence is an ordered sequence whose keys are positions 0..Len()-1.
type Sequence []interface{}

// NewSequence creates a Sequence holding items.
func NewSequence(items ...interface{}) Sequence {
	s := make(Sequence, len(items))
	copy(s, items)
	return s
}

func (s Sequence) Kind() Kind { return KindSequence }

func (s Sequence) Len() int { return len(s) }

func (s Sequence) Pairs() []Pair {
	pairs := make([]Pair, len(s))
	for i, v := range s {
		pairs[i] = Pair{Key: i, Value: v}
	}
	return pairs
}

// Rebuild returns a Sequence of the same length with result[i] at position i.
func (s Sequence) Rebuild(results map[interface{}]interface{}) Collection {
	out := make(Sequence, len(s))
	for i := range s {
		if v, ok := results[i]; ok {
			out[i] = v
		} else {
			out[i] = Placeholder
		}
	}
	return out
}
