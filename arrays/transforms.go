package arrays

// Map applies f to every element and returns the results in order.
func Map[In, Out any](input []In, f func(In) Out) []Out {
	result := make([]Out, 0, len(input))
	for _, v := range input {
		result = append(result, f(v))
	}
	return result
}

// Filter keeps the elements for which keep returns true. It never returns nil.
func Filter[T any](input []T, keep func(T) bool) []T {
	result := make([]T, 0, len(input))
	for _, v := range input {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}

// Unique drops repeated values, keeping the first occurrence of each.
func Unique[T comparable](input []T) []T {
	seen := make(map[T]struct{}, len(input))
	result := make([]T, 0, len(input))
	for _, v := range input {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
