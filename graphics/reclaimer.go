package graphics

import (
	"sync"

	"github.com/abdes/oxygen-interop/logging"
)

// Releaser is implemented by resources that own native handles needing an
// explicit destruction call. Resources without it are simply dropped once
// their hold expires.
type Releaser interface {
	Release()
}

// DeferredReclaimer delays resource destruction by a fixed number of frames
// so the GPU never sees a resource destroyed while an in-flight frame still
// references it. Schedule may be called from any goroutine; Collect runs on
// the engine thread once per frame.
type DeferredReclaimer struct {
	mu     sync.Mutex
	frames int
	held   []deferredEntry
}

type deferredEntry struct {
	resource   Resource
	framesLeft int
}

// NewDeferredReclaimer creates a reclaimer holding resources for
// framesInFlight frames before release.
//
// Parameters:
//   - framesInFlight: hold duration in frames (minimum 1)
func NewDeferredReclaimer(framesInFlight int) *DeferredReclaimer {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &DeferredReclaimer{frames: framesInFlight}
}

// Schedule queues a resource for destruction after the hold period. Nil
// resources are ignored.
func (d *DeferredReclaimer) Schedule(r Resource) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.held = append(d.held, deferredEntry{resource: r, framesLeft: d.frames})
	d.mu.Unlock()
}

// Collect advances the hold counters and releases every resource whose hold
// expired. Called once per frame on the engine thread.
//
// Returns:
//   - int: the number of resources released this call
func (d *DeferredReclaimer) Collect() int {
	d.mu.Lock()
	var kept []deferredEntry
	var expired []Resource
	for _, e := range d.held {
		e.framesLeft--
		if e.framesLeft <= 0 {
			expired = append(expired, e.resource)
		} else {
			kept = append(kept, e)
		}
	}
	d.held = kept
	d.mu.Unlock()

	for _, r := range expired {
		if rel, ok := r.(Releaser); ok {
			rel.Release()
		}
		logging.L().Debug("deferred release", "resource", r.Name())
	}
	return len(expired)
}

// Drain releases everything immediately regardless of remaining hold frames.
// Used on shutdown after a full Flush.
func (d *DeferredReclaimer) Drain() {
	d.mu.Lock()
	held := d.held
	d.held = nil
	d.mu.Unlock()

	for _, e := range held {
		if rel, ok := e.resource.(Releaser); ok {
			rel.Release()
		}
	}
}

// Pending returns the number of resources currently held.
func (d *DeferredReclaimer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.held)
}
