package surface

import (
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/logging"
)

// AckCallback acknowledges one staged surface operation. Every callback
// handed to the registry is invoked exactly once, with false when the
// operation could not be applied (duplicate key, missing surface).
type AckCallback func(success bool)

type pendingOp struct {
	key common.Key
	srf *Surface
	cb  AckCallback
}

// Registry tracks surfaces by their 16-byte key. Producers stage
// registrations, destructions, and resize callbacks from any thread; the
// engine thread drains and commits at frame start. Destructions staged in a
// frame are processed before registrations of the same frame, so a key can
// be recycled within one frame boundary.
type Registry struct {
	mu sync.Mutex

	live map[common.Key]*Surface
	// order preserves registration order for deterministic SnapshotSurfaces.
	order []common.Key

	pendingRegistrations []pendingOp
	pendingDestructions  []pendingOp
	pendingResizes       map[common.Key][]AckCallback
}

// NewRegistry creates an empty surface registry.
func NewRegistry() *Registry {
	return &Registry{
		live:           make(map[common.Key]*Surface),
		pendingResizes: make(map[common.Key][]AckCallback),
	}
}

// RegisterSurface stages a surface for registration at the next frame start.
// If the key is already live the callback fires with false immediately;
// nothing is staged.
//
// Parameters:
//   - key: the surface identity
//   - srf: the surface to install
//   - cb: acknowledged exactly once (nil allowed)
func (r *Registry) RegisterSurface(key common.Key, srf *Surface, cb AckCallback) {
	r.mu.Lock()
	if _, exists := r.live[key]; exists {
		r.mu.Unlock()
		logging.L().Debug("duplicate surface registration", "key", key.String())
		invoke(cb, false)
		return
	}
	r.pendingRegistrations = append(r.pendingRegistrations, pendingOp{key: key, srf: srf, cb: cb})
	r.mu.Unlock()
}

// RemoveSurface stages a live surface for destruction at the next frame
// start. Unknown keys acknowledge false immediately.
//
// Parameters:
//   - key: the surface identity
//   - cb: acknowledged exactly once (nil allowed)
func (r *Registry) RemoveSurface(key common.Key, cb AckCallback) {
	r.mu.Lock()
	srf, exists := r.live[key]
	if !exists {
		r.mu.Unlock()
		logging.L().Debug("remove of unknown surface", "key", key.String())
		invoke(cb, false)
		return
	}
	delete(r.live, key)
	r.removeFromOrder(key)
	r.pendingDestructions = append(r.pendingDestructions, pendingOp{key: key, srf: srf, cb: cb})
	r.mu.Unlock()
}

// RegisterResizeCallback appends an acknowledgment for the next applied
// resize of key. The surface's own resize-requested flag must be asserted
// separately via Surface.MarkResizeRequested.
func (r *Registry) RegisterResizeCallback(key common.Key, cb AckCallback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	r.pendingResizes[key] = append(r.pendingResizes[key], cb)
	r.mu.Unlock()
}

// DrainPendingRegistrations removes all staged registrations and passes them
// to fn in staging order. Engine thread only.
func (r *Registry) DrainPendingRegistrations(fn func(key common.Key, srf *Surface, cb AckCallback)) {
	r.mu.Lock()
	batch := r.pendingRegistrations
	r.pendingRegistrations = nil
	r.mu.Unlock()
	for _, op := range batch {
		fn(op.key, op.srf, op.cb)
	}
}

// DrainPendingDestructions removes all staged destructions and passes them
// to fn in staging order. Engine thread only.
func (r *Registry) DrainPendingDestructions(fn func(key common.Key, srf *Surface, cb AckCallback)) {
	r.mu.Lock()
	batch := r.pendingDestructions
	r.pendingDestructions = nil
	r.mu.Unlock()
	for _, op := range batch {
		fn(op.key, op.srf, op.cb)
	}
}

// DrainResizeCallbacks fires all staged resize acknowledgments for key with
// the given result. Engine thread only, after the resize is applied.
//
// Returns:
//   - int: the number of callbacks fired
func (r *Registry) DrainResizeCallbacks(key common.Key, success bool) int {
	r.mu.Lock()
	cbs := r.pendingResizes[key]
	delete(r.pendingResizes, key)
	r.mu.Unlock()
	for _, cb := range cbs {
		invoke(cb, success)
	}
	return len(cbs)
}

// CommitRegistration installs a surface into the live map. Engine thread
// only, from within a DrainPendingRegistrations callback.
//
// Returns:
//   - bool: false when the key is already live (the staged registration lost
//     a race with another registration of the same key)
func (r *Registry) CommitRegistration(key common.Key, srf *Surface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.live[key]; exists {
		return false
	}
	r.live[key] = srf
	r.order = append(r.order, key)
	return true
}

// FindSurface returns the live surface for key.
func (r *Registry) FindSurface(key common.Key) (*Surface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	srf, ok := r.live[key]
	return srf, ok
}

// SnapshotSurfaces returns the live surfaces in registration order. The
// slice is a stable copy for the current frame; the registry may change
// underneath it on other threads.
func (r *Registry) SnapshotSurfaces() []*Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Surface, 0, len(r.order))
	for _, key := range r.order {
		if srf, ok := r.live[key]; ok {
			out = append(out, srf)
		}
	}
	return out
}

// LiveCount returns the number of committed surfaces.
func (r *Registry) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Clear drops every live surface and staged operation. Staged callbacks are
// acknowledged with false so no waiter hangs.
func (r *Registry) Clear() {
	r.mu.Lock()
	regs := r.pendingRegistrations
	dests := r.pendingDestructions
	resizes := r.pendingResizes
	r.pendingRegistrations = nil
	r.pendingDestructions = nil
	r.pendingResizes = make(map[common.Key][]AckCallback)
	r.live = make(map[common.Key]*Surface)
	r.order = nil
	r.mu.Unlock()

	for _, op := range regs {
		invoke(op.cb, false)
	}
	for _, op := range dests {
		invoke(op.cb, false)
	}
	for _, cbs := range resizes {
		for _, cb := range cbs {
			invoke(cb, false)
		}
	}
}

func (r *Registry) removeFromOrder(key common.Key) {
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// invoke guards a host callback: a panicking callback is logged and
// swallowed so it cannot take down the engine thread.
func invoke(cb AckCallback, success bool) {
	if cb == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.L().Error("surface callback panicked", "recover", rec)
		}
	}()
	cb(success)
}
