/*
Package collection provides the keyed views the map-reduce pipeline works on.

A Collection is one of a closed set of container categories:

	Sequence  positional values, keys are int indexes
	Mapping   ordered string keys
	Table     ordered row labels, each row a column->value Row

The pipeline enumerates a collection with Pairs, maps every pair in
parallel, and puts the results back with Rebuild. Rebuild always returns a
collection of the same category and with the same keys in the same order as
the receiver. Keys whose result is missing (the map task failed) hold
Placeholder:

	out := in.Rebuild(results)
	for _, p := range out.Pairs() {
		if collection.IsPlaceholder(p.Value) {
			// map failed for p.Key
		}
	}

Raw Go values are turned into collections once, at the boundary, by From and
ParseJSON. Nothing inside the pipeline inspects value types after that.
*/
package collection
