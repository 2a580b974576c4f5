package editor

import (
	"fmt"
	"math"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
)

// ViewConfig describes a view at creation time.
type ViewConfig struct {
	Name    string
	Purpose string
	// CompositingTarget names the surface this view's color output is
	// composited into. The zero key means "offscreen only".
	CompositingTarget common.Key
	// Width and Height are the fallback size used until a compositing target
	// dictates one.
	Width      uint32
	Height     uint32
	ClearColor common.Color
}

// ViewState is the lifecycle state of an EditorView.
type ViewState int

const (
	ViewCreating ViewState = iota
	ViewReady
	ViewHidden
	ViewReleasing
	ViewDestroyed
	// ViewStateCount is the number of states; not a valid state itself.
	ViewStateCount
)

var viewStateNames = [ViewStateCount]string{
	"Creating", "Ready", "Hidden", "Releasing", "Destroyed",
}

// NewViewState validates a raw value into a ViewState.
//
// Parameters:
//   - v: the raw value
//
// Returns:
//   - ViewState: the validated state
//   - error: when v is outside [0, ViewStateCount)
func NewViewState(v int) (ViewState, error) {
	if v < 0 || v >= int(ViewStateCount) {
		return 0, fmt.Errorf("view state %d out of range [0, %d)", v, int(ViewStateCount))
	}
	return ViewState(v), nil
}

// String returns the state name.
func (s ViewState) String() string {
	if s < 0 || s >= ViewStateCount {
		return "Invalid"
	}
	return viewStateNames[s]
}

// CameraPreset is a canonical camera framing.
type CameraPreset int

const (
	PresetPerspective CameraPreset = iota
	PresetTop
	PresetBottom
	PresetLeft
	PresetRight
	PresetFront
	PresetBack
	// CameraPresetCount is the number of presets; not a valid preset itself.
	CameraPresetCount
)

// NewCameraPreset validates a raw value into a CameraPreset.
func NewCameraPreset(v int) (CameraPreset, error) {
	if v < 0 || v >= int(CameraPresetCount) {
		return 0, fmt.Errorf("camera preset %d out of range [0, %d)", v, int(CameraPresetCount))
	}
	return CameraPreset(v), nil
}

// presetDirection returns the unit direction from the focus point toward the
// camera for a preset. The perspective preset keeps a three-quarter framing.
func presetDirection(p CameraPreset) common.Vec3 {
	switch p {
	case PresetTop:
		return common.Vec3{0, 1, 0}
	case PresetBottom:
		return common.Vec3{0, -1, 0}
	case PresetLeft:
		return common.Vec3{-1, 0, 0}
	case PresetRight:
		return common.Vec3{1, 0, 0}
	case PresetFront:
		return common.Vec3{0, 0, 1}
	case PresetBack:
		return common.Vec3{0, 0, -1}
	default:
		return common.Vec3{0.5, 0.5, 1}.Normalize()
	}
}

// EditorView is one logical render target: offscreen color and depth
// textures, a framebuffer, a camera node, and a lifecycle state machine. All
// methods run on the engine thread under the view manager's mutex.
type EditorView struct {
	id  frame.ViewId
	cfg ViewConfig
	gfx graphics.Graphics

	state   ViewState
	visible bool

	width, height uint32

	color graphics.Texture
	depth graphics.Texture
	fb    graphics.Framebuffer

	camera         scene.NodeHandle
	orientationSet bool

	graph *RenderGraph
}

const (
	defaultViewWidth  = 640
	defaultViewHeight = 480
	viewFocusDistance = 10
)

// newEditorView constructs a view in the Creating state. GPU resources are
// allocated lazily at pre-render. newEditorView panics if gfx is nil.
func newEditorView(gfx graphics.Graphics, cfg ViewConfig) *EditorView {
	if gfx == nil {
		panic("editor: newEditorView requires a non-nil graphics backend")
	}
	return &EditorView{
		cfg:    cfg,
		gfx:    gfx,
		state:  ViewCreating,
		width:  common.Coalesce(cfg.Width, defaultViewWidth),
		height: common.Coalesce(cfg.Height, defaultViewHeight),
		graph:  NewRenderGraph(),
	}
}

// Id returns the engine-assigned view id, or the invalid id before
// registration.
func (v *EditorView) Id() frame.ViewId { return v.id }

// Name returns the configured view name.
func (v *EditorView) Name() string { return v.cfg.Name }

// State returns the lifecycle state.
func (v *EditorView) State() ViewState { return v.state }

// IsVisible reports whether the view participates in rendering.
func (v *EditorView) IsVisible() bool { return v.visible }

// Size returns the view's current pixel size.
func (v *EditorView) Size() (uint32, uint32) { return v.width, v.height }

// CompositingTarget returns the surface key this view composites into.
func (v *EditorView) CompositingTarget() common.Key { return v.cfg.CompositingTarget }

// ColorTexture returns the offscreen color texture, or nil before the first
// pre-render.
func (v *EditorView) ColorTexture() graphics.Texture { return v.color }

// Camera returns the view's camera node handle.
func (v *EditorView) Camera() scene.NodeHandle { return v.camera }

// Graph returns the view's render graph.
func (v *EditorView) Graph() *RenderGraph { return v.graph }

// initialize moves the view from Creating to Ready and creates its camera
// under the scene.
func (v *EditorView) initialize(scn *scene.Scene) error {
	if v.state != ViewCreating {
		return fmt.Errorf("view %q: initialize in state %s", v.cfg.Name, v.state)
	}
	if scn == nil {
		return fmt.Errorf("view %q: initialize without a scene", v.cfg.Name)
	}
	v.ensureCamera(scn)
	v.state = ViewReady
	v.visible = true
	return nil
}

// show re-includes the view in rendering.
func (v *EditorView) show() {
	if v.state == ViewHidden {
		v.state = ViewReady
	}
	if v.state == ViewReady {
		v.visible = true
	}
}

// hide excludes the view from rendering without releasing anything.
func (v *EditorView) hide() {
	if v.state == ViewReady {
		v.state = ViewHidden
	}
	v.visible = false
}

// ensureCamera creates the view camera if it is absent or was destroyed.
func (v *EditorView) ensureCamera(scn *scene.Scene) {
	if scn.IsAlive(v.camera) {
		return
	}
	v.camera = scn.CreateNode(fmt.Sprintf("%s/Camera", v.cfg.Name))
	tr := scene.IdentityTransform()
	tr.Position = common.Vec3{0, viewFocusDistance * 0.5, viewFocusDistance}
	scn.SetLocalTransform(v.camera, tr)

	cam := scene.DefaultPerspective()
	cam.Aspect = v.aspect()
	scn.SetCamera(v.camera, cam)
	v.orientationSet = false
}

func (v *EditorView) aspect() float32 {
	if v.height == 0 {
		return 1
	}
	return float32(v.width) / float32(v.height)
}

// onSceneMutation keeps the camera consistent with the view size and points
// it at the focus point on the first ready frame.
func (v *EditorView) onSceneMutation(scn *scene.Scene, fctx frame.Context) {
	if v.state != ViewReady || !v.visible || scn == nil {
		return
	}
	v.ensureCamera(scn)

	if cam, ok := scn.CameraOf(v.camera); ok && cam.Aspect != v.aspect() {
		cam.Aspect = v.aspect()
		scn.SetCamera(v.camera, cam)
	}

	if !v.orientationSet {
		tr := scn.LocalTransform(v.camera)
		tr.Rotation = common.LookRotation(common.Vec3{}.Sub(tr.Position))
		scn.SetLocalTransform(v.camera, tr)
		v.orientationSet = true
	}

	if fctx != nil && v.id.IsValid() {
		fctx.UpdateView(v.id, v.viewContext())
	}
}

func (v *EditorView) viewContext() frame.ViewContext {
	full := common.Rect{Width: v.width, Height: v.height}
	return frame.ViewContext{
		Name:     v.cfg.Name,
		Camera:   v.camera,
		Viewport: full,
		Scissor:  full,
	}
}

// onPreRender makes sure the color/depth/framebuffer triple matches the
// view's current size, releasing any outdated triple through the deferred
// reclaimer first.
func (v *EditorView) onPreRender() error {
	if v.state != ViewReady || !v.visible {
		return nil
	}
	if v.color != nil && v.color.Width() == v.width && v.color.Height() == v.height {
		return nil
	}
	v.releaseTriple()

	color, err := v.gfx.CreateTexture(graphics.TextureDesc{
		Name:           fmt.Sprintf("%s/color", v.cfg.Name),
		Width:          v.width,
		Height:         v.height,
		Format:         graphics.FormatRGBA8Unorm,
		RenderTarget:   true,
		ShaderResource: true,
		InitialState:   graphics.StateShaderResource,
		ClearColor:     v.cfg.ClearColor,
	})
	if err != nil {
		return fmt.Errorf("view %q: color texture: %w", v.cfg.Name, err)
	}
	depth, err := v.gfx.CreateTexture(graphics.TextureDesc{
		Name:         fmt.Sprintf("%s/depth", v.cfg.Name),
		Width:        v.width,
		Height:       v.height,
		Format:       graphics.FormatDepth32,
		RenderTarget: true,
		InitialState: graphics.StateDepthWrite,
		ClearDepth:   1.0,
	})
	if err != nil {
		v.gfx.RegisterDeferredRelease(color)
		return fmt.Errorf("view %q: depth texture: %w", v.cfg.Name, err)
	}
	fb, err := v.gfx.CreateFramebuffer(graphics.FramebufferDesc{
		Name:  fmt.Sprintf("%s/fb", v.cfg.Name),
		Color: []graphics.Texture{color},
		Depth: depth,
	})
	if err != nil {
		v.gfx.RegisterDeferredRelease(color)
		v.gfx.RegisterDeferredRelease(depth)
		return fmt.Errorf("view %q: framebuffer: %w", v.cfg.Name, err)
	}

	v.color, v.depth, v.fb = color, depth, fb
	return nil
}

// resize records a new size; the triple is rebuilt at the next pre-render.
func (v *EditorView) resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	if width == v.width && height == v.height {
		return
	}
	v.width, v.height = width, height
	v.graph.ClearBackbufferReferences()
}

// releaseTriple schedules the current GPU triple for deferred release and
// clears graph references to it.
func (v *EditorView) releaseTriple() {
	v.graph.ClearBackbufferReferences()
	if v.fb != nil {
		v.gfx.RegisterDeferredRelease(v.fb)
		v.fb = nil
	}
	if v.color != nil {
		v.gfx.RegisterDeferredRelease(v.color)
		v.color = nil
	}
	if v.depth != nil {
		v.gfx.RegisterDeferredRelease(v.depth)
		v.depth = nil
	}
}

// releaseResources tears the view down: Releasing, deferred release of the
// GPU triple, camera destruction, Destroyed. Idempotent.
func (v *EditorView) releaseResources(scn *scene.Scene) {
	if v.state == ViewDestroyed {
		return
	}
	v.state = ViewReleasing
	v.visible = false
	v.releaseTriple()
	if scn != nil && scn.IsAlive(v.camera) {
		scn.DestroyNode(v.camera)
	}
	v.camera = scene.NodeHandle{}
	v.state = ViewDestroyed
}

// applyPreset snaps the camera to a canonical framing, preserving the focus
// distance. Perspective-to-orthographic transitions derive the half-height
// from the field of view at that distance.
func (v *EditorView) applyPreset(scn *scene.Scene, p CameraPreset) {
	if scn == nil || !scn.IsAlive(v.camera) {
		return
	}
	cam, ok := scn.CameraOf(v.camera)
	if !ok {
		return
	}

	tr := scn.LocalTransform(v.camera)
	radius := tr.Position.Length()
	if radius < 0.1 {
		radius = viewFocusDistance
	}

	dir := presetDirection(p)
	tr.Position = dir.Scale(radius)
	tr.Rotation = common.LookRotation(common.Vec3{}.Sub(tr.Position))
	scn.SetLocalTransform(v.camera, tr)
	v.orientationSet = true

	if p == PresetPerspective {
		if cam.Kind != scene.CameraPerspective {
			restored := scene.DefaultPerspective()
			restored.Aspect = cam.Aspect
			restored.Near, restored.Far = cam.Near, cam.Far
			cam = restored
		}
		scn.SetCamera(v.camera, cam)
		return
	}

	if cam.Kind == scene.CameraPerspective {
		fov := cam.FovY
		if fov <= 0 {
			fov = scene.DefaultPerspective().FovY
		}
		cam.OrthoHalfHeight = float32(math.Tan(float64(fov)/2)) * radius
	}
	cam.Kind = scene.CameraOrthographic
	scn.SetCamera(v.camera, cam)
}

// logState is a debug aid used by the manager when transitions are refused.
func (v *EditorView) logState(op string) {
	logging.L().Debug("view operation skipped",
		"view", v.cfg.Name, "op", op, "state", v.state.String(), "visible", v.visible)
}
