// Package differ compares two keyed collections and sorts every key into
// exactly one of add, change, delete or identical.
package differ

import (
	"slices"
)

// Pair holds the current and desired value of a key present on both sides
type Pair[C, D any] struct {
	Current C
	Desired D
}

// Entry is a key with its value
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// ChangeEntry is a key present on both sides whose values are not equal
type ChangeEntry[K comparable, C, D any] struct {
	Key K
	Pair[C, D]
}

// DiffResult partitions the union of keys. Every slice is ordered by the
// compare function passed to DiffMappings.
type DiffResult[K comparable, C, D any] struct {
	// Add holds keys only in desired
	Add []Entry[K, D]
	// Change holds keys on both sides where equal returned false
	Change []ChangeEntry[K, C, D]
	// Delete holds keys only in current
	Delete []Entry[K, C]
	// Identical holds keys on both sides where equal returned true
	Identical []ChangeEntry[K, C, D]
}

// Empty reports whether nothing needs to be added, changed or deleted
func (r DiffResult[K, C, D]) Empty() bool {
	return len(r.Add) == 0 && len(r.Change) == 0 && len(r.Delete) == 0
}

// DiffMappings diffs current against desired. equal decides whether a key
// present on both sides is unchanged. compare orders keys so the result is
// deterministic regardless of map iteration order; it must be a total order.
func DiffMappings[K comparable, C, D any](
	current map[K]C,
	desired map[K]D,
	equal func(C, D) bool,
	compare func(a, b K) int,
) DiffResult[K, C, D] {
	var result DiffResult[K, C, D]

	for _, k := range sortedKeys(desired, compare) {
		d := desired[k]
		c, ok := current[k]
		switch {
		case !ok:
			result.Add = append(result.Add, Entry[K, D]{Key: k, Value: d})
		case equal(c, d):
			result.Identical = append(result.Identical, ChangeEntry[K, C, D]{Key: k, Pair: Pair[C, D]{Current: c, Desired: d}})
		default:
			result.Change = append(result.Change, ChangeEntry[K, C, D]{Key: k, Pair: Pair[C, D]{Current: c, Desired: d}})
		}
	}

	for _, k := range sortedKeys(current, compare) {
		if _, ok := desired[k]; !ok {
			result.Delete = append(result.Delete, Entry[K, C]{Key: k, Value: current[k]})
		}
	}

	return result
}

func sortedKeys[K comparable, V any](m map[K]V, compare func(a, b K) int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}
