package input

import (
	"sync"

	"github.com/abdes/oxygen-interop/frame"
)

// KeyEvent is one key transition accumulated for a view.
type KeyEvent struct {
	Key     int
	Pressed bool
}

// ButtonEvent is one mouse-button transition accumulated for a view.
type ButtonEvent struct {
	Button  int
	Pressed bool
}

// Batch is everything a view accumulated since its last drain: relative
// motion, wheel travel, the last known pointer position, and the discrete
// key/button transitions in arrival order.
type Batch struct {
	MotionX, MotionY   float32
	Wheel              float32
	PointerX, PointerY float32
	Keys               []KeyEvent
	Buttons            []ButtonEvent
}

// Accumulator collects input per view between frames. Host callbacks feed it
// from any goroutine; the engine thread drains one batch per view per frame.
type Accumulator struct {
	mu    sync.Mutex
	views map[frame.ViewId]*Batch
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{views: make(map[frame.ViewId]*Batch)}
}

func (a *Accumulator) batch(id frame.ViewId) *Batch {
	b, ok := a.views[id]
	if !ok {
		b = &Batch{}
		a.views[id] = b
	}
	return b
}

// AccumulateMotion adds relative pointer motion to the view's batch.
func (a *Accumulator) AccumulateMotion(id frame.ViewId, dx, dy float32) {
	if !id.IsValid() {
		return
	}
	a.mu.Lock()
	b := a.batch(id)
	b.MotionX += dx
	b.MotionY += dy
	a.mu.Unlock()
}

// AccumulateWheel adds wheel travel to the view's batch.
func (a *Accumulator) AccumulateWheel(id frame.ViewId, dy float32) {
	if !id.IsValid() {
		return
	}
	a.mu.Lock()
	a.batch(id).Wheel += dy
	a.mu.Unlock()
}

// SetPointer records the last pointer position over the view.
func (a *Accumulator) SetPointer(id frame.ViewId, x, y float32) {
	if !id.IsValid() {
		return
	}
	a.mu.Lock()
	b := a.batch(id)
	b.PointerX, b.PointerY = x, y
	a.mu.Unlock()
}

// PushKey appends a key transition to the view's batch.
func (a *Accumulator) PushKey(id frame.ViewId, key int, pressed bool) {
	if !id.IsValid() {
		return
	}
	a.mu.Lock()
	b := a.batch(id)
	b.Keys = append(b.Keys, KeyEvent{Key: key, Pressed: pressed})
	a.mu.Unlock()
}

// PushButton appends a button transition to the view's batch.
func (a *Accumulator) PushButton(id frame.ViewId, button int, pressed bool) {
	if !id.IsValid() {
		return
	}
	a.mu.Lock()
	b := a.batch(id)
	b.Buttons = append(b.Buttons, ButtonEvent{Button: button, Pressed: pressed})
	a.mu.Unlock()
}

// Drain returns the view's accumulated batch and resets it. The last pointer
// position carries over to the next batch; everything else starts fresh.
func (a *Accumulator) Drain(id frame.ViewId) Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.views[id]
	if !ok {
		return Batch{}
	}
	out := *b
	*b = Batch{PointerX: b.PointerX, PointerY: b.PointerY}
	return out
}

// OnFocusLost zeroes the view's motion and wheel deltas. Key and button
// transitions are kept so release events arriving around the focus change
// still pair up with their presses.
func (a *Accumulator) OnFocusLost(id frame.ViewId) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.views[id]; ok {
		b.MotionX, b.MotionY, b.Wheel = 0, 0, 0
	}
}

// RemoveView discards all accumulated state for a destroyed view.
func (a *Accumulator) RemoveView(id frame.ViewId) {
	a.mu.Lock()
	delete(a.views, id)
	a.mu.Unlock()
}
