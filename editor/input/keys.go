// Package input accumulates per-view editor input and turns it into camera
// navigation. The accumulator batches raw events between frames; the
// navigator drains a view's batch once per frame and applies the navigation
// features in a fixed order.
package input

// Virtual key codes for cross-platform input handling. Values match GLFW
// key codes, which use ASCII for printable keys.
const (
	KeyW = 87
	KeyA = 65
	KeyS = 83
	KeyD = 68
	KeyQ = 81
	KeyE = 69
	KeyF = 70

	KeySpace     = 32
	KeyEsc       = 256
	KeyBackspace = 259

	KeyLeftShift   = 340
	KeyLeftControl = 341
	KeyLeftAlt     = 342
)

// Mouse button codes, GLFW-aligned.
const (
	ButtonLeft   = 0
	ButtonRight  = 1
	ButtonMiddle = 2
)
