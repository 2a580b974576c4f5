package input

import (
	"math"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/scene"
)

// Snapshot is one frame's worth of input for a view: the drained deltas plus
// the held key/button state the navigator tracks across frames. Features
// read it, never mutate it.
type Snapshot struct {
	MotionX, MotionY   float32
	Wheel              float32
	PointerX, PointerY float32

	keysDown    map[int]bool
	buttonsDown map[int]bool
}

// KeyDown reports whether the key is held this frame.
func (s Snapshot) KeyDown(key int) bool { return s.keysDown[key] }

// ButtonDown reports whether the mouse button is held this frame.
func (s Snapshot) ButtonDown(button int) bool { return s.buttonsDown[button] }

// Speeds are the tuning constants for camera navigation, loaded from the
// editor config.
type Speeds struct {
	Orbit float32 // radians per pixel of drag
	Pan   float32 // world units per pixel at distance 1
	Dolly float32 // fraction of focus distance per pixel
	Fly   float32 // world units per second
	Zoom  float32 // exponential factor per wheel notch
}

// DefaultSpeeds returns the navigation tuning used when the config supplies
// none.
func DefaultSpeeds() Speeds {
	return Speeds{Orbit: 0.008, Pan: 0.002, Dolly: 0.01, Fly: 5, Zoom: 0.1}
}

// State is the per-view navigation state a feature may read and update: the
// focus point the camera orbits and the orthographic half-height for
// wheel zoom.
type State struct {
	Focus           common.Vec3
	OrthoHalfHeight float32
}

// Feature is one independent navigation behavior. Each feature registers its
// own chords and applies one frame's worth of transform updates from the
// snapshot. Features do not see each other; the navigator fixes their
// composition order.
type Feature interface {
	Name() string
	RegisterBindings(t *BindingTable)
	Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32)
}

const (
	minFocusDistance = 0.1
	maxPitch         = 1.55 // just shy of ±90° to keep world-up usable
	minOrthoHeight   = 0.01
)

// forwardFromEuler returns the -Z forward axis rotated by (pitch, yaw).
// Inverse of common.LookRotation.
func forwardFromEuler(pitch, yaw float32) common.Vec3 {
	cp := float32(math.Cos(float64(pitch)))
	return common.Vec3{
		-float32(math.Sin(float64(yaw))) * cp,
		float32(math.Sin(float64(pitch))),
		-float32(math.Cos(float64(yaw))) * cp,
	}
}

func clampPitch(p float32) float32 {
	if p > maxPitch {
		return maxPitch
	}
	if p < -maxPitch {
		return -maxPitch
	}
	return p
}

// orbitFeature rotates the camera around the focus point.
type orbitFeature struct{ speeds Speeds }

func (orbitFeature) Name() string { return "Orbit" }

func (orbitFeature) RegisterBindings(t *BindingTable) {
	t.Register(ActionOrbit, Binding{Button: ButtonLeft, Key: KeyLeftAlt})
}

func (f orbitFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	if snap.MotionX == 0 && snap.MotionY == 0 {
		return
	}
	tr := scn.LocalTransform(camera)
	radius := tr.Position.Sub(st.Focus).Length()
	if radius < minFocusDistance {
		radius = minFocusDistance
	}
	yaw := tr.Rotation[1] - snap.MotionX*f.speeds.Orbit
	pitch := clampPitch(tr.Rotation[0] - snap.MotionY*f.speeds.Orbit)

	fwd := forwardFromEuler(pitch, yaw)
	tr.Position = st.Focus.Sub(fwd.Scale(radius))
	tr.Rotation = common.Vec3{pitch, yaw, 0}
	scn.SetLocalTransform(camera, tr)
}

// panFeature slides the camera and its focus point in the view plane.
type panFeature struct{ speeds Speeds }

func (panFeature) Name() string { return "Pan" }

func (panFeature) RegisterBindings(t *BindingTable) {
	t.Register(ActionPan, Binding{Button: ButtonMiddle, Key: NoBinding})
}

func (f panFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	if snap.MotionX == 0 && snap.MotionY == 0 {
		return
	}
	tr := scn.LocalTransform(camera)
	radius := tr.Position.Sub(st.Focus).Length()
	if radius < minFocusDistance {
		radius = minFocusDistance
	}
	fwd := forwardFromEuler(tr.Rotation[0], tr.Rotation[1])
	right := fwd.Cross(common.WorldUp).Normalize()
	up := right.Cross(fwd)

	scaled := f.speeds.Pan * radius
	delta := right.Scale(-snap.MotionX * scaled).Add(up.Scale(snap.MotionY * scaled))
	tr.Position = tr.Position.Add(delta)
	st.Focus = st.Focus.Add(delta)
	scn.SetLocalTransform(camera, tr)
}

// dollyFeature moves the camera along its forward axis toward the focus.
type dollyFeature struct{ speeds Speeds }

func (dollyFeature) Name() string { return "Dolly" }

func (dollyFeature) RegisterBindings(t *BindingTable) {
	t.Register(ActionDolly, Binding{Button: ButtonRight, Key: KeyLeftAlt})
}

func (f dollyFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	if snap.MotionY == 0 {
		return
	}
	tr := scn.LocalTransform(camera)
	dist := tr.Position.Sub(st.Focus).Length()
	if dist < minFocusDistance {
		dist = minFocusDistance
	}
	dist *= 1 + snap.MotionY*f.speeds.Dolly
	if dist < minFocusDistance {
		dist = minFocusDistance
	}
	fwd := forwardFromEuler(tr.Rotation[0], tr.Rotation[1])
	tr.Position = st.Focus.Sub(fwd.Scale(dist))
	scn.SetLocalTransform(camera, tr)
}

// flyFeature is first-person navigation: mouse-look plus WASDQE movement.
// The focus point travels with the camera so a later orbit pivots around
// what the camera is looking at.
type flyFeature struct{ speeds Speeds }

func (flyFeature) Name() string { return "Fly" }

func (flyFeature) RegisterBindings(t *BindingTable) {
	t.Register(ActionFly, Binding{Button: ButtonRight, Key: NoBinding})
}

func (f flyFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	// The dolly chord is fly's chord plus Alt; yield to it.
	if snap.KeyDown(KeyLeftAlt) {
		return
	}
	tr := scn.LocalTransform(camera)
	focusDist := tr.Position.Sub(st.Focus).Length()
	if focusDist < minFocusDistance {
		focusDist = minFocusDistance
	}

	yaw := tr.Rotation[1] - snap.MotionX*f.speeds.Orbit
	pitch := clampPitch(tr.Rotation[0] - snap.MotionY*f.speeds.Orbit)
	fwd := forwardFromEuler(pitch, yaw)
	right := fwd.Cross(common.WorldUp).Normalize()

	var move common.Vec3
	if snap.KeyDown(KeyW) {
		move = move.Add(fwd)
	}
	if snap.KeyDown(KeyS) {
		move = move.Sub(fwd)
	}
	if snap.KeyDown(KeyD) {
		move = move.Add(right)
	}
	if snap.KeyDown(KeyA) {
		move = move.Sub(right)
	}
	if snap.KeyDown(KeyE) {
		move = move.Add(common.WorldUp)
	}
	if snap.KeyDown(KeyQ) {
		move = move.Sub(common.WorldUp)
	}
	if l := move.Length(); l > 0 {
		move = move.Scale(f.speeds.Fly * dt / l)
	}

	tr.Position = tr.Position.Add(move)
	tr.Rotation = common.Vec3{pitch, yaw, 0}
	scn.SetLocalTransform(camera, tr)
	st.Focus = tr.Position.Add(fwd.Scale(focusDist))
}

// wheelZoomFeature zooms with the wheel: dolly for perspective cameras,
// half-height scaling for orthographic ones.
type wheelZoomFeature struct{ speeds Speeds }

func (wheelZoomFeature) Name() string { return "WheelZoom" }

func (wheelZoomFeature) RegisterBindings(t *BindingTable) {
	// Wheel zoom is unconditional; it keys off wheel travel, not a chord.
}

func (f wheelZoomFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	if snap.Wheel == 0 {
		return
	}
	factor := float32(math.Exp(float64(-snap.Wheel * f.speeds.Zoom)))

	if cam, ok := scn.CameraOf(camera); ok && cam.Kind == scene.CameraOrthographic {
		st.OrthoHalfHeight *= factor
		if st.OrthoHalfHeight < minOrthoHeight {
			st.OrthoHalfHeight = minOrthoHeight
		}
		cam.OrthoHalfHeight = st.OrthoHalfHeight
		scn.SetCamera(camera, cam)
		return
	}

	tr := scn.LocalTransform(camera)
	dist := tr.Position.Sub(st.Focus).Length()
	if dist < minFocusDistance {
		dist = minFocusDistance
	}
	dist *= factor
	if dist < minFocusDistance {
		dist = minFocusDistance
	}
	fwd := forwardFromEuler(tr.Rotation[0], tr.Rotation[1])
	tr.Position = st.Focus.Sub(fwd.Scale(dist))
	scn.SetLocalTransform(camera, tr)
}

// resetFeature returns the camera to its home framing of the origin.
type resetFeature struct {
	homeDistance float32
	homeHeight   float32
}

func (resetFeature) Name() string { return "Reset" }

func (resetFeature) RegisterBindings(t *BindingTable) {
	t.Register(ActionReset, Binding{Button: NoBinding, Key: KeyF})
}

func (f resetFeature) Apply(scn *scene.Scene, camera scene.NodeHandle, snap Snapshot, st *State, dt float32) {
	st.Focus = common.Vec3{}
	st.OrthoHalfHeight = f.homeHeight

	pos := common.Vec3{0, f.homeDistance * 0.5, f.homeDistance}
	tr := scn.LocalTransform(camera)
	tr.Position = pos
	tr.Rotation = common.LookRotation(st.Focus.Sub(pos))
	scn.SetLocalTransform(camera, tr)

	if cam, ok := scn.CameraOf(camera); ok && cam.Kind == scene.CameraOrthographic {
		cam.OrthoHalfHeight = st.OrthoHalfHeight
		scn.SetCamera(camera, cam)
	}
}

// viewNavState is the cross-frame navigation memory for one view.
type viewNavState struct {
	keysDown    map[int]bool
	buttonsDown map[int]bool
	state       State
}

// boundFeature pairs a feature with the action gating it. Features without
// an action always run; they gate themselves on their own input.
type boundFeature struct {
	feature Feature
	action  Action
}

// Navigator owns the binding table, the feature list, and the per-view
// navigation state. The feature order is fixed (orbit, pan, dolly, fly,
// wheel zoom, reset); later features see the transforms earlier ones wrote.
type Navigator struct {
	table    *BindingTable
	features []boundFeature
	views    map[frame.ViewId]*viewNavState
	defaults State
}

// NewNavigator builds the standard feature set with the given speeds.
func NewNavigator(speeds Speeds) *Navigator {
	n := &Navigator{
		table: NewBindingTable(),
		features: []boundFeature{
			{orbitFeature{speeds}, ActionOrbit},
			{panFeature{speeds}, ActionPan},
			{dollyFeature{speeds}, ActionDolly},
			{flyFeature{speeds}, ActionFly},
			{wheelZoomFeature{speeds}, ""}, // gated on wheel travel, not a chord
			{resetFeature{homeDistance: 10, homeHeight: 5}, ActionReset},
		},
		views:    make(map[frame.ViewId]*viewNavState),
		defaults: State{OrthoHalfHeight: 5},
	}
	for _, bf := range n.features {
		bf.feature.RegisterBindings(n.table)
	}
	return n
}

// Table exposes the binding table for host rebinding.
func (n *Navigator) Table() *BindingTable { return n.table }

// ViewState returns a copy of the view's navigation state.
func (n *Navigator) ViewState(id frame.ViewId) State {
	if vs, ok := n.views[id]; ok {
		return vs.state
	}
	return n.defaults
}

// SetFocus overrides the view's focus point, for frame-selected workflows.
func (n *Navigator) SetFocus(id frame.ViewId, focus common.Vec3) {
	n.viewState(id).state.Focus = focus
}

// RemoveView discards navigation state for a destroyed view.
func (n *Navigator) RemoveView(id frame.ViewId) {
	delete(n.views, id)
}

func (n *Navigator) viewState(id frame.ViewId) *viewNavState {
	vs, ok := n.views[id]
	if !ok {
		vs = &viewNavState{
			keysDown:    make(map[int]bool),
			buttonsDown: make(map[int]bool),
			state:       n.defaults,
		}
		n.views[id] = vs
	}
	return vs
}

// Update folds one drained batch into the view's held state and runs every
// active feature in order. Engine thread only.
func (n *Navigator) Update(scn *scene.Scene, camera scene.NodeHandle, id frame.ViewId, batch Batch, dt float32) {
	if scn == nil || !id.IsValid() || !scn.IsAlive(camera) {
		return
	}
	vs := n.viewState(id)
	for _, e := range batch.Keys {
		vs.keysDown[e.Key] = e.Pressed
	}
	for _, e := range batch.Buttons {
		vs.buttonsDown[e.Button] = e.Pressed
	}

	snap := Snapshot{
		MotionX:     batch.MotionX,
		MotionY:     batch.MotionY,
		Wheel:       batch.Wheel,
		PointerX:    batch.PointerX,
		PointerY:    batch.PointerY,
		keysDown:    vs.keysDown,
		buttonsDown: vs.buttonsDown,
	}

	for _, bf := range n.features {
		if bf.action != "" && !n.table.Active(bf.action, snap) {
			continue
		}
		bf.feature.Apply(scn, camera, snap, &vs.state, dt)
	}
}
