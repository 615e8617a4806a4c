package collections

// Apply applies the applicator function to each item in the input slice.
func Apply[T, V any](items []T, applicator func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = applicator(item)
	}
	return result
}

// TryApply is Apply for applicators that can fail. It stops at the first
// error and returns it with no partial result.
func TryApply[T, V any](items []T, applicator func(T) (V, error)) ([]V, error) {
	result := make([]V, len(items))
	for i, item := range items {
		v, err := applicator(item)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}
