package editor

import (
	"math"
	"testing"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/graphics/graphicstest"
	"github.com/abdes/oxygen-interop/mesh"
	"github.com/abdes/oxygen-interop/scene"
)

type harness struct {
	gfx      *graphicstest.Backend
	renderer *frame.Renderer
	mod      *EditorModule
	loop     *frame.Loop
}

func newHarness(t *testing.T, options ...EditorModuleOption) *harness {
	t.Helper()
	t.Cleanup(scene.Nodes().ClearAll)

	gfx := graphicstest.New(2)
	renderer := frame.NewRenderer(gfx)
	opts := append([]EditorModuleOption{WithRenderer(renderer)}, options...)
	mod := NewEditorModule(gfx, opts...)

	loop := frame.NewLoop(frame.NewEngineContext())
	loop.Register(mod)
	loop.Register(renderer)
	return &harness{gfx: gfx, renderer: renderer, mod: mod, loop: loop}
}

func keyOf(b byte) common.Key {
	var k common.Key
	for i := range k {
		k[i] = b
	}
	return k
}

// phasedFunc lets tests enqueue ad-hoc work at a chosen phase.
type phasedFunc struct {
	phase frame.Phase
	fn    func(*CommandContext)
}

func (p phasedFunc) Phase() frame.Phase          { return p.phase }
func (p phasedFunc) Execute(ctx *CommandContext) { p.fn(ctx) }

func TestSurfaceRegisterRenderDestroy(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x01)

	registered := false
	h.mod.CreateSurface(key, "main", 800, 600, func(ok bool) { registered = ok })
	if h.mod.Surfaces().LiveCount() != 0 {
		t.Fatal("surface live before the frame boundary")
	}

	h.loop.RunFrame()

	if !registered {
		t.Fatal("registration not acknowledged")
	}
	if h.mod.Surfaces().LiveCount() != 1 {
		t.Fatalf("live surfaces = %d, want 1", h.mod.Surfaces().LiveCount())
	}
	if got := len(h.loop.Context().Surfaces()); got != 1 {
		t.Fatalf("frame context surfaces = %d, want 1", got)
	}
	if !h.loop.Context().IsSurfacePresentable(0) {
		t.Error("surface not marked presentable")
	}

	srf, _ := h.mod.Surfaces().FindSurface(key)
	if n := h.mod.compositor.CacheSize(key); n != srf.FramesInFlight() {
		t.Errorf("cached framebuffers = %d, want %d", n, srf.FramesInFlight())
	}

	id, ok := h.mod.SurfaceView(key)
	if !ok {
		t.Fatal("no per-surface view registered")
	}
	if h.loop.Context().ViewOutput(id) == nil {
		t.Error("per-surface view has no output framebuffer")
	}

	rendered := false
	for _, rec := range h.gfx.Recorders {
		if rec.Name() == "view:main/view" && rec.Finished {
			rendered = true
		}
	}
	if !rendered {
		t.Error("per-surface view was not rendered")
	}

	removed := false
	h.mod.RemoveSurface(key, func(ok bool) { removed = ok })
	h.loop.RunFrame()

	if !removed {
		t.Fatal("destruction not acknowledged")
	}
	if h.mod.Surfaces().LiveCount() != 0 {
		t.Error("surface still live after removal")
	}
	if got := len(h.loop.Context().Surfaces()); got != 0 {
		t.Errorf("frame context surfaces = %d, want 0", got)
	}
	if n := h.mod.compositor.CacheSize(key); n != 0 {
		t.Errorf("cached framebuffers = %d after destroy, want 0", n)
	}
}

func TestSurfaceResizeReconcilesCameraAndCache(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x02)

	h.mod.CreateSurface(key, "main", 1024, 768, nil)
	h.loop.RunFrame()

	resized := false
	h.mod.RequestResize(key, 1280, 720, func(ok bool) { resized = ok })
	h.loop.RunFrame()

	if !resized {
		t.Fatal("resize not acknowledged")
	}
	srf, _ := h.mod.Surfaces().FindSurface(key)
	if srf.Width() != 1280 || srf.Height() != 720 {
		t.Fatalf("surface size = %dx%d, want 1280x720", srf.Width(), srf.Height())
	}

	cam, ok := h.mod.cameras[key]
	if !ok {
		t.Fatal("no per-surface camera")
	}
	c, ok := h.mod.Scene().CameraOf(cam)
	if !ok {
		t.Fatal("camera node lost its camera component")
	}
	want := float32(1280) / float32(720)
	if math.Abs(float64(c.Aspect-want)) > 1e-6 {
		t.Errorf("camera aspect = %v, want %v", c.Aspect, want)
	}

	fb := h.mod.compositor.Framebuffer(key, 0)
	if fb == nil {
		t.Fatal("no framebuffer after resize")
	}
	if color := fb.ColorAttachment(0); color.Width() != 1280 || color.Height() != 720 {
		t.Errorf("framebuffer color = %dx%d, want 1280x720", color.Width(), color.Height())
	}
}

func TestGeneratedGeometryIsSharedAndDeterministic(t *testing.T) {
	h := newHarness(t)

	var a, b scene.NodeHandle
	h.mod.EnqueueCommand(CreateSceneNode{Name: "a", Callback: func(n scene.NodeHandle) { a = n }})
	h.mod.EnqueueCommand(CreateSceneNode{Name: "b", Callback: func(n scene.NodeHandle) { b = n }})
	h.loop.RunFrame()

	uri := mesh.GeneratedURIPrefix + mesh.MeshCube.String()
	h.mod.EnqueueCommand(SetGeometry{Handle: a, URI: uri})
	h.mod.EnqueueCommand(SetGeometry{Handle: b, URI: uri})
	h.loop.RunFrame()

	scn := h.mod.Scene()
	ra, rb := scn.Renderable(a), scn.Renderable(b)
	if ra == nil || rb == nil {
		t.Fatal("geometry not attached")
	}
	if ra.Geometry != rb.Geometry {
		t.Error("same generated uri produced distinct geometry instances")
	}
	if ra.Geometry.Key != common.DeriveAssetKey(uri) {
		t.Error("geometry key does not derive from its uri")
	}
}

func TestCreateSceneNodeRegistersBeforeCallback(t *testing.T) {
	h := newHarness(t)
	regKey := keyOf(0xAB)

	var got scene.NodeHandle
	visibleInCallback := false
	h.mod.EnqueueCommand(CreateSceneNode{
		Name:   "hero",
		RegKey: regKey,
		Callback: func(n scene.NodeHandle) {
			got = n
			_, visibleInCallback = scene.Nodes().Lookup(regKey)
		},
	})
	h.loop.RunFrame()

	if !got.IsValid() || !h.mod.Scene().IsAlive(got) {
		t.Fatal("callback did not receive a live handle")
	}
	if !visibleInCallback {
		t.Error("registry entry not visible inside the creation callback")
	}
	if reg, ok := scene.Nodes().Lookup(regKey); !ok || reg != got {
		t.Error("registry lookup does not match the created node")
	}
}

func TestBatchedCommandsExecuteInOrderAtomically(t *testing.T) {
	h := newHarness(t)

	var a, b scene.NodeHandle
	h.mod.BeginBatch()
	h.mod.EnqueueCommand(CreateSceneNode{Name: "A", Callback: func(n scene.NodeHandle) { a = n }})
	h.mod.EnqueueCommand(CreateSceneNode{Name: "B", Callback: func(n scene.NodeHandle) { b = n }})
	h.mod.EnqueueCommand(phasedFunc{frame.PhaseSceneMutation, func(ctx *CommandContext) {
		Reparent{Handle: b, NewParent: a}.Execute(ctx)
	}})
	h.mod.EnqueueCommand(phasedFunc{frame.PhaseSceneMutation, func(ctx *CommandContext) {
		tr := scene.IdentityTransform()
		tr.Position = common.Vec3{1, 2, 3}
		SetLocalTransform{Handle: b, Transform: tr}.Execute(ctx)
	}})

	// Nothing leaks out before EndBatch.
	h.loop.RunFrame()
	if h.mod.Scene().NodeCount() != 0 {
		t.Fatal("batched commands executed before EndBatch")
	}

	h.mod.EndBatch()
	h.loop.RunFrame()

	scn := h.mod.Scene()
	if !scn.IsAlive(a) || !scn.IsAlive(b) {
		t.Fatal("batched creations did not apply")
	}
	if scn.Parent(b) != a {
		t.Error("reparent did not see handles from earlier batch commands")
	}
	if pos := scn.LocalTransform(b).Position; pos != (common.Vec3{1, 2, 3}) {
		t.Errorf("transform = %v, want {1 2 3}", pos)
	}
}

func TestNestedBatchPanics(t *testing.T) {
	h := newHarness(t)
	h.mod.BeginBatch()
	defer h.mod.EndBatch()

	defer func() {
		if recover() == nil {
			t.Error("nested BeginBatch did not panic")
		}
	}()
	h.mod.BeginBatch()
}

func TestEndBatchWithoutBeginPanics(t *testing.T) {
	h := newHarness(t)
	defer func() {
		if recover() == nil {
			t.Error("EndBatch without BeginBatch did not panic")
		}
	}()
	h.mod.EndBatch()
}

func TestViewLifecycle(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x03)
	h.mod.CreateSurface(key, "main", 256, 256, nil)
	h.loop.RunFrame()

	var id frame.ViewId
	created := false
	h.mod.EnqueueCommand(CreateView{
		Config: ViewConfig{
			Name:              "persp",
			CompositingTarget: key,
			Width:             256,
			Height:            256,
		},
		Callback: func(ok bool, v frame.ViewId) { created = ok; id = v },
	})
	h.loop.RunFrame()

	if !created || !id.IsValid() {
		t.Fatalf("view creation failed (ok=%v id=%v)", created, id)
	}
	if h.loop.Context().ViewOutput(id) == nil {
		t.Fatal("view has no output framebuffer")
	}

	v, ok := h.mod.Views().View(id)
	if !ok || v.State() != ViewReady {
		t.Fatalf("view state = %v, want Ready", v.State())
	}

	// The view's color output is composited into the surface backbuffer.
	composited := false
	for _, rec := range h.gfx.Recorders {
		if rec.Name() != "compositor" {
			continue
		}
		for _, op := range rec.OpsOfKind("copy") {
			if op.CopySrc == v.ColorTexture() {
				composited = true
			}
		}
	}
	if !composited {
		t.Error("view color texture never composited into the surface")
	}

	h.mod.EnqueueCommand(HideView{Id: id})
	h.loop.RunFrame()
	if h.loop.Context().ViewOutput(id) != nil {
		t.Error("hidden view still has an output binding")
	}
	if v.State() != ViewHidden {
		t.Errorf("state after hide = %v, want Hidden", v.State())
	}

	h.mod.EnqueueCommand(ShowView{Id: id})
	h.loop.RunFrame()
	if h.loop.Context().ViewOutput(id) == nil {
		t.Error("shown view has no output binding")
	}
	if v.State() != ViewReady {
		t.Errorf("state after show = %v, want Ready", v.State())
	}
	if got := v.Id(); got != id {
		t.Errorf("view id changed across hide/show: %v != %v", got, id)
	}

	h.mod.EnqueueCommand(DestroyView{Id: id})
	h.loop.RunFrame()
	if h.mod.Views().ViewCount() != 0 {
		t.Error("view still tracked after destroy")
	}
	if v.State() != ViewDestroyed {
		t.Errorf("state after destroy = %v, want Destroyed", v.State())
	}

	// Operations on the dead id are no-ops.
	h.mod.EnqueueCommand(ShowView{Id: id})
	h.mod.EnqueueCommand(DestroyView{Id: id})
	h.loop.RunFrame()
	if h.mod.Views().ViewCount() != 0 {
		t.Error("dead view id resurrected a view")
	}
}

func TestCreateSceneReplacesSceneNextFrame(t *testing.T) {
	h := newHarness(t)
	old := h.mod.Scene()

	h.mod.EnqueueCommand(CreateScene{Name: "fresh"})
	h.loop.RunFrame()

	if h.mod.Scene() == old {
		t.Fatal("scene not replaced")
	}
	if h.mod.Scene().Name() != "fresh" {
		t.Errorf("scene name = %q, want %q", h.mod.Scene().Name(), "fresh")
	}

	h.loop.RunFrame()
	if h.loop.Context().GetScene() != h.mod.Scene() {
		t.Error("frame context not publishing the replacement scene")
	}
}

func TestWheelInputMovesViewCamera(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x04)
	h.mod.CreateSurface(key, "main", 128, 128, nil)
	h.loop.RunFrame()

	var id frame.ViewId
	h.mod.EnqueueCommand(CreateView{
		Config:   ViewConfig{Name: "nav", CompositingTarget: key},
		Callback: func(ok bool, v frame.ViewId) { id = v },
	})
	h.loop.RunFrame()
	h.loop.RunFrame() // orientation settles on the first ready frame

	v, _ := h.mod.Views().View(id)
	before := h.mod.Scene().LocalTransform(v.Camera()).Position

	h.mod.Input().AccumulateWheel(id, 2.0)
	h.loop.RunFrame()

	after := h.mod.Scene().LocalTransform(v.Camera()).Position
	if after.Sub(before).Length() == 0 {
		t.Error("wheel zoom did not move the camera")
	}
	if after.Length() >= before.Length() {
		t.Errorf("zoom in moved the camera away: %v -> %v", before.Length(), after.Length())
	}
}

func TestStatsAccumulate(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x05)
	h.mod.CreateSurface(key, "main", 64, 64, nil)

	h.mod.EnqueueCommand(CreateSceneNode{Name: "n"})
	for i := 0; i < 3; i++ {
		h.loop.RunFrame()
	}

	s := h.mod.Stats()
	if s.Frames != 3 {
		t.Errorf("frames = %d, want 3", s.Frames)
	}
	if s.CommandsExecuted == 0 {
		t.Error("no commands counted")
	}
	if s.ViewsRendered == 0 {
		t.Error("no views counted")
	}
}

func TestDestroyViewDiscardsInputAndNavigationState(t *testing.T) {
	h := newHarness(t)
	key := keyOf(0x06)
	h.mod.CreateSurface(key, "main", 320, 240, nil)
	h.loop.RunFrame()

	var id frame.ViewId
	h.mod.EnqueueCommand(CreateView{
		Config:   ViewConfig{Name: "scratch", CompositingTarget: key},
		Callback: func(ok bool, v frame.ViewId) { id = v },
	})
	h.loop.RunFrame()
	if !id.IsValid() {
		t.Fatal("view creation failed")
	}

	h.mod.Input().SetPointer(id, 7, 9)
	h.mod.Navigation().SetFocus(id, common.Vec3{1, 2, 3})

	h.mod.EnqueueCommand(DestroyView{Id: id})
	h.loop.RunFrame()

	if b := h.mod.Input().Drain(id); b.PointerX != 0 || b.PointerY != 0 {
		t.Error("accumulated input survived view destruction")
	}
	if st := h.mod.Navigation().ViewState(id); st.Focus != (common.Vec3{}) {
		t.Error("navigation state survived view destruction")
	}
}
