// Package common contains plain data types and math helpers shared across
// the interop module: vectors, column-major matrices, 16-byte keys, and
// byte-reinterpret helpers for GPU uploads.
package common

// Color is an RGBA color with float components in [0, 1].
type Color [4]float32

// Extent is a 2D size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Rect is an axis-aligned pixel rectangle, used for viewports and scissors.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// Coalesce returns the first non-zero value from the provided values, or the
// zero value if all are zero. Used for config fallbacks.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
