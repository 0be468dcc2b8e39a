package filter

// Predicate is a boolean expression over metadata fields in the store's
// native query language. It marshals directly to the store's where-clause
// JSON and is restricted to the operator subset the store evaluates natively:
// field equality, $lte/$gte comparison, $in membership, and $and conjunction.
// A nil Predicate means an unconstrained query.
type Predicate map[string]any

// Eq builds a field equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{field: value}
}

// Lte builds a field <= value predicate.
func Lte(field string, value any) Predicate {
	return Predicate{field: map[string]any{"$lte": value}}
}

// Gte builds a field >= value predicate.
func Gte(field string, value any) Predicate {
	return Predicate{field: map[string]any{"$gte": value}}
}

// In builds a set membership predicate.
func In(field string, values []string) Predicate {
	return Predicate{field: map[string]any{"$in": values}}
}

// And conjoins predicates. Zero predicates yield nil (unconstrained), a
// single predicate is used as-is, more are wrapped in a $and clause.
func And(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		clauses := make([]Predicate, len(preds))
		copy(clauses, preds)
		return Predicate{"$and": clauses}
	}
}
