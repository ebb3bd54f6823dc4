// Package ptr builds pointers for the optional fields of partial API updates.
package ptr

// To creates a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// String creates a pointer to the given string value.
func String(s string) *string {
	return To(s)
}
