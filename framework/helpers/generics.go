package helpers

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// SortedKeys returns the keys of a map in ascending order, so that iteration is deterministic.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// LastN returns the last n elements of a slice, or the whole slice if it is shorter. The result
// is a copy.
func LastN[V any](s []V, n int) []V {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return append([]V(nil), s...)
}
