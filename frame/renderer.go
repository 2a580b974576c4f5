package frame

import (
	"fmt"
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
)

// ResolvedView is the scene-camera view a resolver produces from a
// ViewContext for one frame of rendering.
type ResolvedView struct {
	Scene    *scene.Scene
	Camera   scene.NodeHandle
	Viewport common.Rect
	Scissor  common.Rect
}

// ViewResolver maps the engine's per-frame view context to a resolved
// scene-camera view.
type ViewResolver func(vc ViewContext) (ResolvedView, error)

// GraphFactory records the render work for one view into the recorder. The
// output framebuffer is the one bound via Context.SetViewOutput.
type GraphFactory func(rv ResolvedView, fb graphics.Framebuffer, rec graphics.CommandRecorder) error

// Renderer is the engine-side per-view dispatcher. Modules register a
// resolver and a graph factory per view; ExecuteViews runs them for every
// registered view that has an output framebuffer bound this frame.
type Renderer struct {
	mu        sync.Mutex
	gfx       graphics.Graphics
	resolvers map[ViewId]ViewResolver
	factories map[ViewId]GraphFactory
}

// NewRenderer creates a renderer over the given graphics backend.
func NewRenderer(gfx graphics.Graphics) *Renderer {
	if gfx == nil {
		panic("frame: NewRenderer requires a non-nil graphics backend")
	}
	return &Renderer{
		gfx:       gfx,
		resolvers: make(map[ViewId]ViewResolver),
		factories: make(map[ViewId]GraphFactory),
	}
}

// RegisterViewResolver installs the resolver for a view id, replacing any
// previous one. Invalid ids are ignored.
func (r *Renderer) RegisterViewResolver(id ViewId, resolver ViewResolver) {
	if !id.IsValid() || resolver == nil {
		return
	}
	r.mu.Lock()
	r.resolvers[id] = resolver
	r.mu.Unlock()
}

// RegisterGraphFactory installs the render-graph factory for a view id,
// replacing any previous one. Invalid ids are ignored.
func (r *Renderer) RegisterGraphFactory(id ViewId, factory GraphFactory) {
	if !id.IsValid() || factory == nil {
		return
	}
	r.mu.Lock()
	r.factories[id] = factory
	r.mu.Unlock()
}

// UnregisterView removes the view's resolver and factory. Safe for unknown
// or invalid ids.
func (r *Renderer) UnregisterView(id ViewId) {
	r.mu.Lock()
	delete(r.resolvers, id)
	delete(r.factories, id)
	r.mu.Unlock()
}

// HasView reports whether the view has both a resolver and a factory.
func (r *Renderer) HasView(id ViewId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, okR := r.resolvers[id]
	_, okF := r.factories[id]
	return okR && okF
}

// ExecuteViews renders every registered view that has a recorded view
// context and a bound output framebuffer. Views without either are skipped
// for the frame. Per-view errors are logged; rendering continues with the
// next view, so one broken view cannot blank the rest.
//
// Returns:
//   - int: the number of views rendered
func (r *Renderer) ExecuteViews(ctx Context) int {
	r.mu.Lock()
	resolvers := make(map[ViewId]ViewResolver, len(r.resolvers))
	factories := make(map[ViewId]GraphFactory, len(r.factories))
	for id, v := range r.resolvers {
		resolvers[id] = v
	}
	for id, f := range r.factories {
		factories[id] = f
	}
	r.mu.Unlock()

	rendered := 0
	for _, id := range ctx.ViewIds() {
		resolver, okR := resolvers[id]
		factory, okF := factories[id]
		if !okR || !okF {
			continue
		}
		fb := ctx.ViewOutput(id)
		if fb == nil {
			continue
		}
		vc, ok := ctx.View(id)
		if !ok {
			continue
		}
		if err := r.executeView(vc, resolver, factory, fb); err != nil {
			logging.L().Error("view render failed", "view", int64(id), "error", err)
			continue
		}
		rendered++
	}
	return rendered
}

// RendererModuleName is the name the renderer reports to the frame loop.
const RendererModuleName = "EngineRenderer"

var _ Module = (*Renderer)(nil)

// Name implements Module.
func (r *Renderer) Name() string { return RendererModuleName }

// Priority implements Module. The renderer runs after producer modules have
// bound view outputs.
func (r *Renderer) Priority() int { return 0 }

// SupportedPhases implements Module. The renderer only participates in the
// render phase.
func (r *Renderer) SupportedPhases() PhaseMask { return MaskOf(PhaseRender) }

// OnFrameStart implements Module.
func (r *Renderer) OnFrameStart(ctx Context) {}

// OnSceneMutation implements Module.
func (r *Renderer) OnSceneMutation(ctx Context) {}

// OnPreRender implements Module.
func (r *Renderer) OnPreRender(ctx Context) {}

// OnRender implements Module; it executes every dispatchable view.
func (r *Renderer) OnRender(ctx Context) {
	r.ExecuteViews(ctx)
}

// OnCompositing implements Module.
func (r *Renderer) OnCompositing(ctx Context) {}

func (r *Renderer) executeView(vc ViewContext, resolver ViewResolver, factory GraphFactory, fb graphics.Framebuffer) error {
	rv, err := resolver(vc)
	if err != nil {
		return fmt.Errorf("resolve view %q: %w", vc.Name, err)
	}
	rec, err := r.gfx.AcquireCommandRecorder(
		r.gfx.QueueKeyFor(graphics.QueueRoleGraphics),
		fmt.Sprintf("view:%s", vc.Name))
	if err != nil {
		return fmt.Errorf("acquire recorder: %w", err)
	}
	if err := factory(rv, fb, rec); err != nil {
		return fmt.Errorf("graph factory: %w", err)
	}
	if err := rec.Finish(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}
