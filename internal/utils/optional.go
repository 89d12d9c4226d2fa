package utils

// Ptr returns a pointer to a copy of v
func Ptr[T any](v T) *T {
	return &v
}

// ValueOr dereferences p, returning fallback when p is nil
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// StringValue dereferences a nullable string, nil becomes ""
func StringValue(s *string) string {
	return ValueOr(s, "")
}

// NonEmpty returns nil for "" so optional strings stay absent
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
