package frame

import (
	"sync"

	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
	"github.com/abdes/oxygen-interop/surface"
)

// Context is the frame-scoped object the engine lends to module hooks. It is
// only valid for the duration of the hook call chain; modules must not store
// it across frames. All methods are engine-thread only.
type Context interface {
	// GetScene returns the scene published for this frame, or nil.
	GetScene() *scene.Scene

	// SetScene publishes a scene for rendering.
	SetScene(s *scene.Scene)

	// Surfaces returns the ordered surface list. The slice is owned by the
	// context; mutate through AddSurface/RemoveSurfaceAt.
	Surfaces() []*surface.Surface

	// AddSurface appends a surface to the ordered list.
	AddSurface(s *surface.Surface)

	// RemoveSurfaceAt removes the surface at index i. Out-of-range indices
	// are ignored.
	RemoveSurfaceAt(i int)

	// SetSurfacePresentable marks whether the surface at index i may be
	// presented this frame.
	SetSurfacePresentable(i int, presentable bool)

	// IsSurfacePresentable reports the presentable flag for index i.
	IsSurfacePresentable(i int) bool

	// RegisterView assigns a ViewId and records the view context for this
	// frame.
	RegisterView(vc ViewContext) ViewId

	// UpdateView replaces the recorded view context for id. Unknown ids are
	// ignored.
	UpdateView(id ViewId, vc ViewContext)

	// UnregisterView removes the view from per-view dispatch. Unknown ids
	// are ignored.
	UnregisterView(id ViewId)

	// View returns the recorded view context for id.
	View(id ViewId) (ViewContext, bool)

	// ViewIds returns the registered view ids in registration order.
	ViewIds() []ViewId

	// SetViewOutput binds the framebuffer the view renders into this frame.
	SetViewOutput(id ViewId, fb graphics.Framebuffer)

	// ViewOutput returns the bound output framebuffer for id, or nil.
	ViewOutput(id ViewId) graphics.Framebuffer

	// CurrentPhase returns the phase whose hooks are currently running.
	CurrentPhase() Phase
}

// EngineContext is the concrete Context used by the engine loop and by
// tests. View registrations survive across frames (views persist until
// unregistered); outputs and the phase are per-frame.
type EngineContext struct {
	mu sync.Mutex

	scn      *scene.Scene
	surfaces []*surface.Surface
	present  []bool

	nextViewId ViewId
	viewOrder  []ViewId
	views      map[ViewId]ViewContext
	outputs    map[ViewId]graphics.Framebuffer

	phase Phase
}

var _ Context = (*EngineContext)(nil)

// NewEngineContext creates an empty engine frame context.
func NewEngineContext() *EngineContext {
	return &EngineContext{
		nextViewId: 1,
		views:      make(map[ViewId]ViewContext),
		outputs:    make(map[ViewId]graphics.Framebuffer),
	}
}

// BeginPhase marks the running phase. Engine loop only.
func (c *EngineContext) BeginPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// ResetFrame clears per-frame state (view outputs). Called by the engine
// loop at the top of each frame.
func (c *EngineContext) ResetFrame() {
	c.mu.Lock()
	c.outputs = make(map[ViewId]graphics.Framebuffer)
	c.mu.Unlock()
}

func (c *EngineContext) GetScene() *scene.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scn
}

func (c *EngineContext) SetScene(s *scene.Scene) {
	c.mu.Lock()
	c.scn = s
	c.mu.Unlock()
}

func (c *EngineContext) Surfaces() []*surface.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*surface.Surface, len(c.surfaces))
	copy(out, c.surfaces)
	return out
}

func (c *EngineContext) AddSurface(s *surface.Surface) {
	c.mu.Lock()
	c.surfaces = append(c.surfaces, s)
	c.present = append(c.present, false)
	c.mu.Unlock()
}

func (c *EngineContext) RemoveSurfaceAt(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.surfaces) {
		logging.L().Debug("RemoveSurfaceAt out of range", "index", i)
		return
	}
	c.surfaces = append(c.surfaces[:i], c.surfaces[i+1:]...)
	c.present = append(c.present[:i], c.present[i+1:]...)
}

func (c *EngineContext) SetSurfacePresentable(i int, presentable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.present) {
		return
	}
	c.present[i] = presentable
}

func (c *EngineContext) IsSurfacePresentable(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.present) {
		return false
	}
	return c.present[i]
}

func (c *EngineContext) RegisterView(vc ViewContext) ViewId {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextViewId
	c.nextViewId++
	c.views[id] = vc
	c.viewOrder = append(c.viewOrder, id)
	return id
}

func (c *EngineContext) UpdateView(id ViewId, vc ViewContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.views[id]; !ok {
		return
	}
	c.views[id] = vc
}

func (c *EngineContext) UnregisterView(id ViewId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.views[id]; !ok {
		return
	}
	delete(c.views, id)
	delete(c.outputs, id)
	for i, v := range c.viewOrder {
		if v == id {
			c.viewOrder = append(c.viewOrder[:i], c.viewOrder[i+1:]...)
			break
		}
	}
}

func (c *EngineContext) View(id ViewId) (ViewContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vc, ok := c.views[id]
	return vc, ok
}

func (c *EngineContext) ViewIds() []ViewId {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ViewId, len(c.viewOrder))
	copy(out, c.viewOrder)
	return out
}

func (c *EngineContext) SetViewOutput(id ViewId, fb graphics.Framebuffer) {
	if !id.IsValid() {
		return
	}
	c.mu.Lock()
	c.outputs[id] = fb
	c.mu.Unlock()
}

func (c *EngineContext) ViewOutput(id ViewId) graphics.Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputs[id]
}

func (c *EngineContext) CurrentPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}
