package utils

// Value dereferences v, yielding the zero value for nil.
func Value[T any](v *T) T {
	return ValueOr(v, *new(T))
}

// ValueOr dereferences v, yielding fallback for nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for optional request fields.
func Ptr[T any](v T) *T {
	return &v
}
