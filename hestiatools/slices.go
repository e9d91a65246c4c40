package hestiatools

import (
	"cmp"
	"maps"
	"slices"
)

// Map returns transform applied to every element of input, in order.
func Map[In any, Out any](input []In, transform func(In) Out) []Out {
	output := make([]Out, len(input))
	for i, value := range input {
		output[i] = transform(value)
	}

	return output
}

// Filter returns a new slice holding the elements of input that keep accepts.
func Filter[T any](input []T, keep func(T) bool) []T {
	return slices.DeleteFunc(slices.Clone(input), func(value T) bool {
		return !keep(value)
	})
}

func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
