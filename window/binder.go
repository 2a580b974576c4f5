package window

import (
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/editor"
	"github.com/abdes/oxygen-interop/frame"
)

// Binder routes one window's events into the editor module: framebuffer
// resizes become staged surface resizes, and input events accumulate against
// a focus view. The focus view is the editor view whose camera the window's
// mouse and keyboard currently drive; hosts switch it as the user moves
// between viewports.
type Binder struct {
	mu sync.Mutex

	win   Window
	mod   *editor.EditorModule
	key   common.Key
	focus frame.ViewId

	lastX, lastY float32
	haveLast     bool
}

// NewBinder wires a window to the editor module and registers the window's
// surface under the given key. NewBinder panics if win or mod is nil.
//
// Parameters:
//   - win: the host window
//   - mod: the editor module
//   - key: the surface identity for this window
//   - registered: acknowledged once the surface commit is processed (nil allowed)
//
// Returns:
//   - *Binder: the active binding
func NewBinder(win Window, mod *editor.EditorModule, key common.Key, registered func(bool)) *Binder {
	if win == nil {
		panic("window: NewBinder requires a non-nil window")
	}
	if mod == nil {
		panic("window: NewBinder requires a non-nil editor module")
	}
	b := &Binder{win: win, mod: mod, key: key}

	mod.CreateSurface(key, "window", uint32(win.Width()), uint32(win.Height()), registered)

	win.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		mod.RequestResize(key, uint32(width), uint32(height), nil)
	})

	win.SetScrollCallback(func(delta float32) {
		mod.Input().AccumulateWheel(b.Focus(), delta)
	})

	win.SetKeyCallback(func(keyCode int, pressed bool) {
		mod.Input().PushKey(b.Focus(), keyCode, pressed)
	})

	win.SetMouseButtonCallback(func(button int, pressed bool, x, y int32) {
		id := b.Focus()
		mod.Input().SetPointer(id, float32(x), float32(y))
		mod.Input().PushButton(id, button, pressed)
	})

	win.SetMouseMoveCallback(func(x, y int32) {
		b.accumulateMotion(float32(x), float32(y))
	})

	win.SetFocusCallback(func(focused bool) {
		if !focused {
			b.mu.Lock()
			b.haveLast = false
			b.mu.Unlock()
			mod.Input().OnFocusLost(b.Focus())
		}
	})

	return b
}

// SurfaceKey returns the key of the window's surface.
func (b *Binder) SurfaceKey() common.Key { return b.key }

// SetFocusView directs subsequent input to the given view.
func (b *Binder) SetFocusView(id frame.ViewId) {
	b.mu.Lock()
	b.focus = id
	b.mu.Unlock()
}

// Focus returns the view currently receiving input.
func (b *Binder) Focus() frame.ViewId {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focus
}

// accumulateMotion converts absolute cursor positions into relative deltas.
// The first sample after creation or a focus loss only seeds the baseline.
func (b *Binder) accumulateMotion(x, y float32) {
	b.mu.Lock()
	dx, dy := x-b.lastX, y-b.lastY
	seed := !b.haveLast
	b.lastX, b.lastY = x, y
	b.haveLast = true
	id := b.focus
	b.mu.Unlock()

	b.mod.Input().SetPointer(id, x, y)
	if seed {
		return
	}
	b.mod.Input().AccumulateMotion(id, dx, dy)
}

// Close tears the binding down: the surface is staged for destruction and the
// focus view's accumulated input is dropped.
func (b *Binder) Close(cb func(bool)) {
	b.mod.Input().RemoveView(b.Focus())
	b.mod.RemoveSurface(b.key, cb)
}
