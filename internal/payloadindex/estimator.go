package payloadindex

import "github.com/iamNilotpal/vectorcollection/internal/payload"

// estimateFilter combines per-predicate cardinality estimates into one
// {min, max, expected} triple for the whole filter, under the
// independence assumption spec.md §4.4 calls for. predicateEstimate is
// supplied by the caller (Plain always returns total/total/total per
// predicate since it has no structures to narrow with; Struct narrows
// using its posting sets and trees).
func estimateFilter(f *payload.Filter, total uint64, predicateEstimate func(payload.Condition) (uint64, bool)) payload.CardinalityEstimate {
	estimate := payload.CardinalityEstimate{Min: 0, Max: total, Expected: total}
	if f == nil {
		return estimate
	}

	for _, c := range f.Must {
		if n, ok := predicateEstimate(c); ok {
			estimate = payload.CombineAnd(estimate, payload.CardinalityEstimate{Min: n, Max: n, Expected: n}, total)
		}
	}

	if len(f.Should) > 0 {
		var union payload.CardinalityEstimate
		for i, c := range f.Should {
			n, ok := predicateEstimate(c)
			if !ok {
				n = total
			}
			cur := payload.CardinalityEstimate{Min: n, Max: n, Expected: n}
			if i == 0 {
				union = cur
			} else {
				union = payload.CombineOr(union, cur, total)
			}
		}
		estimate = payload.CombineAnd(estimate, union, total)
	}

	return estimate
}
