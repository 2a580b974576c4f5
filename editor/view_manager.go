package editor

import (
	"errors"
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
	"github.com/abdes/oxygen-interop/surface"
)

var (
	errSceneGone  = errors.New("scene unavailable")
	errCameraGone = errors.New("camera node destroyed")
)

// CompositeSource is one pending blit: a view's color texture destined for a
// surface backbuffer.
type CompositeSource struct {
	TargetKey common.Key
	Source    graphics.Texture
}

// ViewManager owns user-created views, indexed by their engine-assigned view
// id. All public methods take the mutex; the frame context is a transient
// captured between OnFrameStart and FinalizeViews. Outside that window,
// operations that need it fail instead of dereferencing a stale pointer.
type ViewManager struct {
	mu       sync.Mutex
	gfx      graphics.Graphics
	renderer *frame.Renderer
	sceneFn  func() *scene.Scene

	views      map[frame.ViewId]*EditorView
	registered map[frame.ViewId]bool

	// onDestroyed runs after a view is erased, so per-view state held outside
	// the manager (input batches, navigation state) is discarded with it.
	onDestroyed func(frame.ViewId)

	fctx frame.Context // transient; valid only during the frame-start window
}

// NewViewManager creates a view manager. The renderer may be nil (views are
// then never dispatched); gfx and sceneFn must not be.
//
// Parameters:
//   - gfx: the graphics backend views allocate from (must not be nil)
//   - renderer: the engine renderer views register dispatch with (may be nil)
//   - sceneFn: returns the current scene; consulted at use time (must not be nil)
//
// Returns:
//   - *ViewManager: the newly created manager
func NewViewManager(gfx graphics.Graphics, renderer *frame.Renderer, sceneFn func() *scene.Scene) *ViewManager {
	if gfx == nil {
		panic("editor: NewViewManager requires a non-nil graphics backend")
	}
	if sceneFn == nil {
		panic("editor: NewViewManager requires a non-nil scene accessor")
	}
	return &ViewManager{
		gfx:        gfx,
		renderer:   renderer,
		sceneFn:    sceneFn,
		views:      make(map[frame.ViewId]*EditorView),
		registered: make(map[frame.ViewId]bool),
	}
}

// SetDestroyedHook registers a callback invoked after a view is destroyed.
// The module uses it to drop the view's accumulated input and navigation
// state; without it those entries would outlive the view (ids are never
// reused).
func (m *ViewManager) SetDestroyedHook(fn func(frame.ViewId)) {
	m.mu.Lock()
	m.onDestroyed = fn
	m.mu.Unlock()
}

// OnFrameStart captures the frame context for the frame-start window.
func (m *ViewManager) OnFrameStart(fctx frame.Context) {
	m.mu.Lock()
	m.fctx = fctx
	m.mu.Unlock()
}

// FinalizeViews pushes an updated view context for every registered view and
// releases the transient frame context.
func (m *ViewManager) FinalizeViews() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fctx != nil {
		for id, v := range m.views {
			if m.registered[id] && v.state == ViewReady {
				m.fctx.UpdateView(id, v.viewContext())
			}
		}
	}
	m.fctx = nil
}

// CreateViewNow constructs a view, initializes it against the current scene,
// and registers it with the frame context. Must be called on the engine
// thread inside the frame-start window; otherwise the callback fires with
// failure. The callback is invoked exactly once.
func (m *ViewManager) CreateViewNow(cfg ViewConfig, cb func(bool, frame.ViewId)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fail := func(reason string) {
		logging.L().Warn("view creation failed", "view", cfg.Name, "reason", reason)
		safeCallback("CreateView", func() {
			if cb != nil {
				cb(false, frame.InvalidViewId)
			}
		})
	}

	if m.fctx == nil {
		fail("no frame context")
		return
	}
	scn := m.sceneFn()
	if scn == nil {
		fail("no scene")
		return
	}

	v := newEditorView(m.gfx, cfg)
	if err := v.initialize(scn); err != nil {
		fail(err.Error())
		return
	}

	id := m.fctx.RegisterView(v.viewContext())
	v.id = id
	m.views[id] = v
	m.registered[id] = true
	m.registerDispatch(v)

	safeCallback("CreateView", func() {
		if cb != nil {
			cb(true, id)
		}
	})
}

// registerDispatch wires the view's resolver and graph factory into the
// engine renderer. Caller holds the mutex.
func (m *ViewManager) registerDispatch(v *EditorView) {
	if m.renderer == nil {
		return
	}
	m.renderer.RegisterViewResolver(v.id, m.resolverFor(v))
	m.renderer.RegisterGraphFactory(v.id, graphFactoryFor(v.graph))
}

func (m *ViewManager) resolverFor(v *EditorView) frame.ViewResolver {
	return func(vc frame.ViewContext) (frame.ResolvedView, error) {
		scn := m.sceneFn()
		if scn == nil {
			return frame.ResolvedView{}, errSceneGone
		}
		if !scn.IsAlive(vc.Camera) {
			return frame.ResolvedView{}, errCameraGone
		}
		return frame.ResolvedView{
			Scene:    scn,
			Camera:   vc.Camera,
			Viewport: vc.Viewport,
			Scissor:  vc.Scissor,
		}, nil
	}
}

// graphFactoryFor adapts a render graph into the engine's per-view factory
// shape.
func graphFactoryFor(g *RenderGraph) frame.GraphFactory {
	return func(rv frame.ResolvedView, fb graphics.Framebuffer, rec graphics.CommandRecorder) error {
		g.PrepareForRenderFrame(fb)
		rc := RenderContext{
			Scene:       rv.Scene,
			Camera:      rv.Camera,
			Framebuffer: fb,
			Viewport:    rv.Viewport,
		}
		g.RunPasses(&rc, rec)
		return nil
	}
}

// DestroyView releases the view's GPU resources, removes its dispatch
// wiring, and erases it. Unknown or invalid ids are no-ops.
func (m *ViewManager) DestroyView(id frame.ViewId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	if !ok {
		return
	}
	v.releaseResources(m.sceneFn())
	if m.renderer != nil {
		m.renderer.UnregisterView(id)
	}
	if m.fctx != nil {
		m.fctx.UnregisterView(id)
	}
	delete(m.views, id)
	delete(m.registered, id)
	if m.onDestroyed != nil {
		m.onDestroyed(id)
	}
}

// RegisterView re-includes a view in per-view dispatch. No-op for unknown
// ids or destroyed views.
func (m *ViewManager) RegisterView(id frame.ViewId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	if !ok || v.state == ViewDestroyed {
		return
	}
	v.show()
	m.registered[id] = true
	m.registerDispatch(v)
}

// UnregisterView removes a view from per-view dispatch without destroying
// it. No-op for unknown ids.
func (m *ViewManager) UnregisterView(id frame.ViewId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	if !ok {
		return
	}
	v.hide()
	m.registered[id] = false
	if m.renderer != nil {
		m.renderer.UnregisterView(id)
	}
}

// OnSceneMutation keeps each registered view's camera and view context
// current.
func (m *ViewManager) OnSceneMutation(fctx frame.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scn := m.sceneFn()
	for id, v := range m.views {
		if m.registered[id] {
			v.onSceneMutation(scn, fctx)
		}
	}
}

// OnPreRender rebuilds each registered view's GPU triple when its size
// changed. A view whose resources fail to build skips this frame and retries
// on the next.
func (m *ViewManager) OnPreRender() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.views {
		if !m.registered[id] {
			continue
		}
		if err := v.onPreRender(); err != nil {
			logging.L().Error("view resources unavailable this frame", "view", v.cfg.Name, "error", err)
		}
	}
}

// BindOutputs publishes each renderable view's framebuffer as its output
// binding for this frame.
func (m *ViewManager) BindOutputs(fctx frame.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fctx == nil {
		return
	}
	for id, v := range m.views {
		if m.registered[id] && v.state == ViewReady && v.visible && v.fb != nil {
			fctx.SetViewOutput(id, v.fb)
		}
	}
}

// OnSurfaceResized resizes every view compositing into the surface to the
// surface's backbuffer dimensions, falling back to the surface size.
func (m *ViewManager) OnSurfaceResized(srf *surface.Surface) {
	if srf == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, h := srf.Width(), srf.Height()
	if bb := srf.CurrentBackbuffer(); bb != nil {
		w, h = bb.Width(), bb.Height()
	}
	for _, v := range m.views {
		if v.cfg.CompositingTarget == srf.Key() {
			v.resize(w, h)
		}
	}
}

// ApplyCameraPreset snaps the view's camera to a canonical framing.
func (m *ViewManager) ApplyCameraPreset(id frame.ViewId, scn *scene.Scene, p CameraPreset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.views[id]; ok {
		v.applyPreset(scn, p)
	}
}

// CompositeSources returns the pending blits: every registered, visible,
// ready view with a compositing target and a built color texture.
func (m *ViewManager) CompositeSources() []CompositeSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CompositeSource
	for id, v := range m.views {
		if !m.registered[id] || v.state != ViewReady || !v.visible {
			continue
		}
		if v.cfg.CompositingTarget.IsZero() || v.color == nil {
			continue
		}
		out = append(out, CompositeSource{TargetKey: v.cfg.CompositingTarget, Source: v.color})
	}
	return out
}

// RegisteredViews returns the ready views currently included in per-view
// dispatch, for per-frame work such as camera navigation.
func (m *ViewManager) RegisteredViews() []*EditorView {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*EditorView, 0, len(m.views))
	for id, v := range m.views {
		if m.registered[id] && v.state == ViewReady {
			out = append(out, v)
		}
	}
	return out
}

// View returns the view for id.
func (m *ViewManager) View(id frame.ViewId) (*EditorView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	return v, ok
}

// ViewCount returns the number of live views.
func (m *ViewManager) ViewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// ReleaseAll destroys every view, for module teardown.
func (m *ViewManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	scn := m.sceneFn()
	for id, v := range m.views {
		v.releaseResources(scn)
		if m.renderer != nil {
			m.renderer.UnregisterView(id)
		}
		delete(m.views, id)
		delete(m.registered, id)
		if m.onDestroyed != nil {
			m.onDestroyed(id)
		}
	}
}
