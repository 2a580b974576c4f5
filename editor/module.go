package editor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/editor/input"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/loader"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/queue"
	"github.com/abdes/oxygen-interop/scene"
	"github.com/abdes/oxygen-interop/surface"
)

// ModuleName is the name the module reports to the engine.
const ModuleName = "EditorModule"

// The editor module runs before every other module in each phase.
const editorModulePriority = math.MaxInt32

// EditorModule bridges the host UI to the engine: producers stage commands
// and surface operations from any thread; the module drains them at the
// legal frame phase, keeps per-surface cameras and framebuffers consistent,
// and drives per-view render graphs and compositing.
type EditorModule struct {
	gfx      graphics.Graphics
	renderer *frame.Renderer
	cfg      Config

	surfaces   *surface.Registry
	views      *ViewManager
	compositor *Compositor

	commands *queue.Queue[EditorCommand]

	// mu guards producer-facing state: the batch, the scene pointer, and the
	// asset collaborators.
	mu      sync.Mutex
	inBatch bool
	batch   []EditorCommand
	scn     *scene.Scene

	assets loader.AssetLoader
	paths  loader.PathResolver
	ldr    *loader.Loader

	accum *input.Accumulator
	nav   *input.Navigator

	stats *statsCollector

	// Engine-thread only from here down.
	cameras       map[common.Key]scene.NodeHandle
	cameraSeq     map[common.Key]int
	nextCameraSeq int
	surfaceViews  map[common.Key]frame.ViewId
	surfaceGraphs map[common.Key]*RenderGraph
	lastFrameTime time.Time

	commandsThisFrame int
	outputsBound      int
}

var _ frame.Module = (*EditorModule)(nil)

// EditorModuleOption configures an EditorModule at construction.
type EditorModuleOption func(*EditorModule)

// WithRenderer wires the engine renderer so views get per-view dispatch.
func WithRenderer(r *frame.Renderer) EditorModuleOption {
	return func(m *EditorModule) { m.renderer = r }
}

// WithAssetServices injects the asset loader and path resolver commands
// consume.
func WithAssetServices(assets loader.AssetLoader, paths loader.PathResolver) EditorModuleOption {
	return func(m *EditorModule) {
		m.assets = assets
		m.paths = paths
	}
}

// WithLoader injects the concrete loader; its completion queue is dispatched
// at the scene-mutation phase. Implies WithAssetServices with the default
// path resolver unless one was set.
func WithLoader(l *loader.Loader) EditorModuleOption {
	return func(m *EditorModule) {
		m.ldr = l
		m.assets = l
		if m.paths == nil {
			m.paths = loader.NewPathResolver()
		}
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) EditorModuleOption {
	return func(m *EditorModule) { m.cfg = cfg }
}

// NewEditorModule creates the editor module over a graphics backend.
// NewEditorModule panics if gfx is nil.
//
// Parameters:
//   - gfx: the graphics backend (must not be nil)
//   - options: functional options to further configure the module
//
// Returns:
//   - *EditorModule: the newly created module
func NewEditorModule(gfx graphics.Graphics, options ...EditorModuleOption) *EditorModule {
	if gfx == nil {
		panic("editor: NewEditorModule requires a non-nil graphics backend")
	}
	m := &EditorModule{
		gfx:           gfx,
		cfg:           DefaultConfig(),
		surfaces:      surface.NewRegistry(),
		compositor:    NewCompositor(gfx),
		commands:      queue.New[EditorCommand](),
		scn:           scene.New("EditorScene"),
		accum:         input.NewAccumulator(),
		stats:         newStatsCollector(),
		cameras:       make(map[common.Key]scene.NodeHandle),
		cameraSeq:     make(map[common.Key]int),
		surfaceViews:  make(map[common.Key]frame.ViewId),
		surfaceGraphs: make(map[common.Key]*RenderGraph),
	}
	for _, option := range options {
		option(m)
	}
	m.nav = input.NewNavigator(m.cfg.Speeds())
	m.views = NewViewManager(gfx, m.renderer, m.Scene)
	m.views.SetDestroyedHook(func(id frame.ViewId) {
		m.accum.RemoveView(id)
		m.nav.RemoveView(id)
	})
	return m
}

// Name implements frame.Module.
func (m *EditorModule) Name() string { return ModuleName }

// Priority implements frame.Module. The editor runs first in every phase.
func (m *EditorModule) Priority() int { return editorModulePriority }

// SupportedPhases implements frame.Module.
func (m *EditorModule) SupportedPhases() frame.PhaseMask {
	return frame.MaskOf(
		frame.PhaseFrameStart,
		frame.PhaseSceneMutation,
		frame.PhasePreRender,
		frame.PhaseRender,
		frame.PhaseCompositing,
	)
}

// Scene returns the module's current scene.
func (m *EditorModule) Scene() *scene.Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scn
}

func (m *EditorModule) setScene(s *scene.Scene) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.scn = s
	m.mu.Unlock()
	// A fresh scene invalidates every handle derived from the old one.
	scene.Nodes().ClearAll()
	m.cameras = make(map[common.Key]scene.NodeHandle)
}

// Views returns the view manager, for hosts that query view state.
func (m *EditorModule) Views() *ViewManager { return m.views }

// Surfaces returns the surface registry.
func (m *EditorModule) Surfaces() *surface.Registry { return m.surfaces }

// Input returns the per-view input accumulator the host feeds.
func (m *EditorModule) Input() *input.Accumulator { return m.accum }

// Navigation returns the camera navigator, for rebinding.
func (m *EditorModule) Navigation() *input.Navigator { return m.nav }

// Stats returns a snapshot of the frame counters.
func (m *EditorModule) Stats() Stats { return m.stats.snapshot() }

// EnqueueCommand stages a command for execution at its phase. Safe from any
// thread. Inside a batch, commands are held until EndBatch.
func (m *EditorModule) EnqueueCommand(cmd EditorCommand) {
	if cmd == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inBatch {
		m.batch = append(m.batch, cmd)
		return
	}
	m.commands.Enqueue(cmd)
}

// BeginBatch opens a command batch: subsequent enqueues are staged together
// and become visible to the engine atomically at EndBatch. Nesting batches
// is caller misuse and panics.
func (m *EditorModule) BeginBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inBatch {
		panic("editor: nested command batch")
	}
	m.inBatch = true
}

// EndBatch flushes the open batch to the command queue in enqueue order.
// Calling it without an open batch is caller misuse and panics.
func (m *EditorModule) EndBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inBatch {
		panic("editor: EndBatch without BeginBatch")
	}
	for _, cmd := range m.batch {
		m.commands.Enqueue(cmd)
	}
	m.batch = nil
	m.inBatch = false
}

// CreateSurface creates a surface with its backbuffers and stages it for
// registration at the next frame start. The callback reports commit success
// exactly once.
func (m *EditorModule) CreateSurface(key common.Key, name string, width, height uint32, cb surface.AckCallback) {
	srf, err := surface.New(m.gfx, key, name, width, height,
		surface.WithFramesInFlight(m.cfg.FramesInFlight))
	if err != nil {
		logging.L().Error("surface creation failed", "surface", name, "error", err)
		safeCallback("CreateSurface", func() {
			if cb != nil {
				cb(false)
			}
		})
		return
	}
	m.surfaces.RegisterSurface(key, srf, cb)
}

// RemoveSurface stages a surface destruction for the next frame start.
func (m *EditorModule) RemoveSurface(key common.Key, cb surface.AckCallback) {
	m.surfaces.RemoveSurface(key, cb)
}

// RequestResize stages a surface resize for the next frame start. The
// callback fires after the resize is applied, or with failure when the
// surface is unknown.
func (m *EditorModule) RequestResize(key common.Key, width, height uint32, cb surface.AckCallback) {
	srf, ok := m.surfaces.FindSurface(key)
	if !ok {
		safeCallback("RequestResize", func() {
			if cb != nil {
				cb(false)
			}
		})
		return
	}
	srf.MarkResizeRequested(width, height)
	m.surfaces.RegisterResizeCallback(key, cb)
}

// SurfaceView returns the view id assigned to a surface's editor camera this
// frame. Engine thread only; ids are reassigned every frame.
func (m *EditorModule) SurfaceView(key common.Key) (frame.ViewId, bool) {
	id, ok := m.surfaceViews[key]
	return id, ok
}

// OnFrameStart applies staged surface changes in the mandated order:
// destructions, then registrations, then resizes, then frame-context sync,
// then scene publication. Frame-start commands (view lifecycle) drain last,
// inside the view manager's transient-context window.
func (m *EditorModule) OnFrameStart(ctx frame.Context) {
	m.views.OnFrameStart(ctx)

	m.surfaces.DrainPendingDestructions(func(key common.Key, srf *surface.Surface, cb surface.AckCallback) {
		m.teardownSurface(ctx, key, srf)
		safeCallback("RemoveSurface", func() {
			if cb != nil {
				cb(true)
			}
		})
	})

	m.surfaces.DrainPendingRegistrations(func(key common.Key, srf *surface.Surface, cb surface.AckCallback) {
		ok := m.surfaces.CommitRegistration(key, srf)
		if !ok {
			logging.L().Warn("surface registration rejected", "key", key.String())
		}
		safeCallback("RegisterSurface", func() {
			if cb != nil {
				cb(ok)
			}
		})
	})

	m.processResizeRequests(ctx)
	m.syncSurfacesWithFrameContext(ctx)

	ctx.SetScene(m.Scene())
	m.clearSurfaceViews(ctx)

	m.commandsThisFrame += m.drainCommands(ctx, frame.PhaseFrameStart)
	m.views.FinalizeViews()
}

// teardownSurface releases everything keyed to a destroyed surface.
func (m *EditorModule) teardownSurface(ctx frame.Context, key common.Key, srf *surface.Surface) {
	if id, ok := m.surfaceViews[key]; ok {
		if m.renderer != nil {
			m.renderer.UnregisterView(id)
		}
		ctx.UnregisterView(id)
		delete(m.surfaceViews, key)
	}
	if cam, ok := m.cameras[key]; ok {
		if scn := m.Scene(); scn != nil && scn.IsAlive(cam) {
			scn.DestroyNode(cam)
		}
		delete(m.cameras, key)
	}
	delete(m.cameraSeq, key)
	m.compositor.DropSurface(key)
	delete(m.surfaceGraphs, key)
	if srf != nil {
		srf.ReleaseBackbuffers()
	}
}

// processResizeRequests runs the resize protocol for every live surface with
// a pending request: flush, drop backbuffer references, flush again, resize,
// notify, reconcile the camera.
func (m *EditorModule) processResizeRequests(ctx frame.Context) {
	for _, srf := range m.surfaces.SnapshotSurfaces() {
		if !srf.ResizeRequested() {
			continue
		}
		key := srf.Key()

		m.gfx.Flush()
		m.compositor.DropSurface(key)
		if g := m.surfaceGraphs[key]; g != nil {
			g.ClearBackbufferReferences()
		}
		m.gfx.Flush()

		err := srf.Resize()
		m.surfaces.DrainResizeCallbacks(key, err == nil)
		if err != nil {
			logging.L().Error("surface resize failed", "surface", srf.Name(), "error", err)
			continue
		}
		m.reconcileCameraAspect(srf)
		m.views.OnSurfaceResized(srf)
		m.stats.surfaceResized()
	}
}

// reconcileCameraAspect updates the per-surface camera's aspect ratio after
// a resize.
func (m *EditorModule) reconcileCameraAspect(srf *surface.Surface) {
	scn := m.Scene()
	cam, ok := m.cameras[srf.Key()]
	if scn == nil || !ok || !scn.IsAlive(cam) {
		return
	}
	if c, ok := scn.CameraOf(cam); ok && srf.Height() > 0 {
		c.Aspect = float32(srf.Width()) / float32(srf.Height())
		scn.SetCamera(cam, c)
	}
}

// syncSurfacesWithFrameContext makes the frame context's ordered surface
// list match the live set. Removals apply in reverse index order before
// additions; every live surface is marked presentable.
func (m *EditorModule) syncSurfacesWithFrameContext(ctx frame.Context) {
	live := m.surfaces.SnapshotSurfaces()
	liveSet := make(map[common.Key]bool, len(live))
	for _, srf := range live {
		liveSet[srf.Key()] = true
	}

	current := ctx.Surfaces()
	for i := len(current) - 1; i >= 0; i-- {
		if !liveSet[current[i].Key()] {
			ctx.RemoveSurfaceAt(i)
		}
	}

	current = ctx.Surfaces()
	present := make(map[common.Key]bool, len(current))
	for _, srf := range current {
		present[srf.Key()] = true
	}
	for _, srf := range live {
		if !present[srf.Key()] {
			ctx.AddSurface(srf)
		}
	}

	for i := range ctx.Surfaces() {
		ctx.SetSurfacePresentable(i, true)
	}
}

// clearSurfaceViews drops last frame's per-surface view registrations; they
// are re-registered during scene mutation.
func (m *EditorModule) clearSurfaceViews(ctx frame.Context) {
	for key, id := range m.surfaceViews {
		if m.renderer != nil {
			m.renderer.UnregisterView(id)
		}
		ctx.UnregisterView(id)
		delete(m.surfaceViews, key)
	}
}

// OnSceneMutation delivers asset completions, drains scene commands, applies
// camera navigation, and registers this frame's per-surface views.
func (m *EditorModule) OnSceneMutation(ctx frame.Context) {
	if m.ldr != nil {
		m.ldr.DispatchCompletions()
	}

	m.commandsThisFrame += m.drainCommands(ctx, frame.PhaseSceneMutation)

	scn := m.Scene()
	dt := m.frameDelta()

	for _, v := range m.views.RegisteredViews() {
		m.nav.Update(scn, v.Camera(), v.Id(), m.accum.Drain(v.Id()), dt)
	}

	for _, srf := range m.surfaces.SnapshotSurfaces() {
		key := srf.Key()
		cam := m.ensureSurfaceCamera(scn, srf)
		if !cam.IsValid() {
			continue
		}
		full := common.Rect{Width: srf.Width(), Height: srf.Height()}
		id := ctx.RegisterView(frame.ViewContext{
			Name:     fmt.Sprintf("%s/view", srf.Name()),
			Camera:   cam,
			Viewport: full,
			Scissor:  full,
		})
		m.surfaceViews[key] = id

		if m.renderer != nil {
			if m.surfaceGraphs[key] == nil {
				m.surfaceGraphs[key] = NewRenderGraph()
			}
			m.renderer.RegisterViewResolver(id, m.surfaceResolver())
			m.renderer.RegisterGraphFactory(id, graphFactoryFor(m.surfaceGraphs[key]))
		}
	}

	m.views.OnSceneMutation(ctx)
}

// frameDelta returns the wall-clock delta since the previous mutation phase,
// clamped so a long stall cannot teleport the camera.
func (m *EditorModule) frameDelta() float32 {
	now := time.Now()
	if m.lastFrameTime.IsZero() {
		m.lastFrameTime = now
		return 1.0 / 60
	}
	dt := float32(now.Sub(m.lastFrameTime).Seconds())
	m.lastFrameTime = now
	if dt > 0.25 {
		dt = 0.25
	}
	return dt
}

// ensureSurfaceCamera creates the surface's editor camera on first use. Each
// surface gets a deterministic distance offset so simultaneous surfaces show
// visually distinct viewpoints.
func (m *EditorModule) ensureSurfaceCamera(scn *scene.Scene, srf *surface.Surface) scene.NodeHandle {
	if scn == nil {
		return scene.NodeHandle{}
	}
	key := srf.Key()
	if cam, ok := m.cameras[key]; ok && scn.IsAlive(cam) {
		return cam
	}

	seq, ok := m.cameraSeq[key]
	if !ok {
		seq = m.nextCameraSeq
		m.nextCameraSeq++
		m.cameraSeq[key] = seq
	}

	cam := scn.CreateNode(fmt.Sprintf("EditorCamera/%s", srf.Name()))
	tr := scene.IdentityTransform()
	tr.Position = common.Vec3{0, 2 + 2*float32(seq), 10 + 2*float32(seq)}
	tr.Rotation = common.LookRotation(common.Vec3{}.Sub(tr.Position))
	scn.SetLocalTransform(cam, tr)

	c := scene.DefaultPerspective()
	if srf.Height() > 0 {
		c.Aspect = float32(srf.Width()) / float32(srf.Height())
	}
	scn.SetCamera(cam, c)

	m.cameras[key] = cam
	return cam
}

// surfaceResolver resolves per-surface view contexts against the current
// scene.
func (m *EditorModule) surfaceResolver() frame.ViewResolver {
	return func(vc frame.ViewContext) (frame.ResolvedView, error) {
		scn := m.Scene()
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

// OnPreRender ensures per-surface framebuffers and render graphs exist, and
// lets views rebuild their GPU triples.
func (m *EditorModule) OnPreRender(ctx frame.Context) {
	for _, srf := range m.surfaces.SnapshotSurfaces() {
		if err := m.compositor.EnsureFramebuffersForSurface(srf); err != nil {
			logging.L().Error("surface framebuffers unavailable", "surface", srf.Name(), "error", err)
			m.stats.frameSkipped()
			continue
		}
		if m.surfaceGraphs[srf.Key()] == nil {
			m.surfaceGraphs[srf.Key()] = NewRenderGraph()
		}
	}
	m.views.OnPreRender()
}

// OnRender binds each surface's current-backbuffer framebuffer to its view
// and publishes view outputs. The engine renderer executes the factories.
func (m *EditorModule) OnRender(ctx frame.Context) {
	m.outputsBound = 0
	for _, srf := range m.surfaces.SnapshotSurfaces() {
		key := srf.Key()
		id, ok := m.surfaceViews[key]
		if !ok {
			continue
		}
		fb := m.compositor.Framebuffer(key, srf.CurrentBackbufferIndex())
		if fb == nil {
			continue
		}
		if g := m.surfaceGraphs[key]; g != nil {
			g.PrepareForRenderFrame(fb)
		}
		ctx.SetViewOutput(id, fb)
		m.outputsBound++
	}
	m.views.BindOutputs(ctx)
}

// OnCompositing blits view outputs into surface backbuffers, rotates
// backbuffers, and advances the deferred reclaimer.
func (m *EditorModule) OnCompositing(ctx frame.Context) {
	sources := m.views.CompositeSources()
	if err := m.compositor.Composite(sources, m.surfaces.FindSurface); err != nil {
		logging.L().Error("compositing failed", "error", err)
	}

	for _, srf := range m.surfaces.SnapshotSurfaces() {
		srf.AdvanceBackbuffer()
	}
	m.gfx.Reclaimer().Collect()

	m.stats.frameDone(m.commandsThisFrame, m.outputsBound, len(sources))
	m.commandsThisFrame = 0
}

// drainCommands executes every queued command whose phase matches, each
// inside its own recover boundary.
//
// Returns:
//   - int: the number of commands executed
func (m *EditorModule) drainCommands(ctx frame.Context, phase frame.Phase) int {
	cmdCtx := &CommandContext{
		Scene:    m.Scene(),
		Assets:   m.assets,
		Paths:    m.paths,
		Views:    m.views,
		Frame:    ctx,
		SetScene: m.setScene,
	}
	return m.commands.DrainIf(
		func(cmd EditorCommand) bool { return cmd.Phase() == phase },
		func(cmd EditorCommand) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.L().Error("command panicked",
						"command", fmt.Sprintf("%T", cmd), "phase", phase.String(), "recover", rec)
				}
			}()
			// Commands that replace the scene must be visible to the rest of
			// the drain.
			cmdCtx.Scene = m.Scene()
			cmd.Execute(cmdCtx)
		},
	)
}
