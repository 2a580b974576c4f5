package input

import (
	"math"
	"testing"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/scene"
)

func navScene(t *testing.T) (*scene.Scene, scene.NodeHandle) {
	t.Helper()
	scn := scene.New("nav")
	cam := scn.CreateNode("camera")
	tr := scene.IdentityTransform()
	tr.Position = common.Vec3{0, 0, 10}
	scn.SetLocalTransform(cam, tr)
	scn.SetCamera(cam, scene.DefaultPerspective())
	return scn, cam
}

func press(b *Batch, keys []int, buttons []int) {
	for _, k := range keys {
		b.Keys = append(b.Keys, KeyEvent{Key: k, Pressed: true})
	}
	for _, btn := range buttons {
		b.Buttons = append(b.Buttons, ButtonEvent{Button: btn, Pressed: true})
	}
}

func TestOrbitKeepsFocusDistance(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	before := scn.LocalTransform(cam).Position.Length()

	b := Batch{MotionX: 120, MotionY: 40}
	press(&b, []int{KeyLeftAlt}, []int{ButtonLeft})
	n.Update(scn, cam, id, b, 1.0/60)

	tr := scn.LocalTransform(cam)
	after := tr.Position.Length()
	if math.Abs(float64(after-before)) > 1e-4 {
		t.Fatalf("orbit changed focus distance: %v -> %v", before, after)
	}
	if tr.Position == (common.Vec3{0, 0, 10}) {
		t.Fatal("orbit did not move the camera")
	}
	// Camera still looks at the focus point.
	fwd := forwardFromEuler(tr.Rotation[0], tr.Rotation[1])
	toFocus := common.Vec3{}.Sub(tr.Position).Normalize()
	if fwd.Sub(toFocus).Length() > 1e-4 {
		t.Fatalf("camera not looking at focus: fwd=%v toFocus=%v", fwd, toFocus)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	b := Batch{MotionY: 1e6}
	press(&b, []int{KeyLeftAlt}, []int{ButtonLeft})
	n.Update(scn, cam, id, b, 1.0/60)

	if p := scn.LocalTransform(cam).Rotation[0]; p < -maxPitch-1e-6 || p > maxPitch+1e-6 {
		t.Fatalf("pitch %v outside clamp", p)
	}
}

func TestPanMovesFocusWithCamera(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	b := Batch{MotionX: 50, MotionY: -30}
	press(&b, nil, []int{ButtonMiddle})
	n.Update(scn, cam, id, b, 1.0/60)

	tr := scn.LocalTransform(cam)
	focus := n.ViewState(id).Focus
	// The camera-to-focus vector is unchanged by a pan.
	offset := tr.Position.Sub(focus)
	if offset.Sub(common.Vec3{0, 0, 10}).Length() > 1e-4 {
		t.Fatalf("pan altered the view offset: %v", offset)
	}
	if focus == (common.Vec3{}) {
		t.Fatal("pan did not move the focus")
	}
}

func TestDollyShrinksDistanceAndClamps(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	b := Batch{MotionY: -50}
	press(&b, []int{KeyLeftAlt}, []int{ButtonRight})
	n.Update(scn, cam, id, b, 1.0/60)

	d := scn.LocalTransform(cam).Position.Length()
	if d >= 10 {
		t.Fatalf("dolly in did not shrink distance: %v", d)
	}

	// A huge dolly never crosses the focus point.
	b2 := Batch{MotionY: -1e9}
	press(&b2, nil, nil)
	n.Update(scn, cam, id, b2, 1.0/60)
	if d := scn.LocalTransform(cam).Position.Length(); d < minFocusDistance-1e-6 {
		t.Fatalf("distance %v below clamp", d)
	}
}

func TestFlyMovesForwardAndYieldsToDolly(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	b := Batch{}
	press(&b, []int{KeyW}, []int{ButtonRight})
	n.Update(scn, cam, id, b, 1.0)

	z := scn.LocalTransform(cam).Position[2]
	if z >= 10 {
		t.Fatalf("fly forward did not move along -Z: z=%v", z)
	}

	// With Alt held, the chord belongs to dolly; W must not move the camera.
	scn.SetLocalTransform(cam, scene.Transform{Position: common.Vec3{0, 0, 10}, Scale: common.One})
	b2 := Batch{}
	press(&b2, []int{KeyLeftAlt}, nil)
	n.Update(scn, cam, id, b2, 1.0)
	if got := scn.LocalTransform(cam).Position; got != (common.Vec3{0, 0, 10}) {
		t.Fatalf("fly ran under the dolly chord: %v", got)
	}
}

func TestWheelZoomPerspectiveDollies(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	n.Update(scn, cam, id, Batch{Wheel: 3}, 1.0/60)
	if d := scn.LocalTransform(cam).Position.Length(); d >= 10 {
		t.Fatalf("wheel-in did not move closer: %v", d)
	}
}

func TestWheelZoomOrthographicScalesHalfHeight(t *testing.T) {
	scn, cam := navScene(t)
	scn.SetCamera(cam, scene.Camera{Kind: scene.CameraOrthographic, OrthoHalfHeight: 5, Near: 0.1, Far: 1000})
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	posBefore := scn.LocalTransform(cam).Position
	n.Update(scn, cam, id, Batch{Wheel: 2}, 1.0/60)

	camComp, _ := scn.CameraOf(cam)
	if camComp.OrthoHalfHeight >= 5 {
		t.Fatalf("ortho half-height did not shrink: %v", camComp.OrthoHalfHeight)
	}
	if scn.LocalTransform(cam).Position != posBefore {
		t.Fatal("ortho zoom must not move the camera")
	}
}

func TestResetRestoresHomeFraming(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())
	id := frame.ViewId(1)

	// Scramble the camera first.
	b := Batch{MotionX: 300, MotionY: 100}
	press(&b, []int{KeyLeftAlt}, []int{ButtonLeft})
	n.Update(scn, cam, id, b, 1.0/60)
	n.SetFocus(id, common.Vec3{4, 4, 4})

	b2 := Batch{}
	press(&b2, []int{KeyF}, nil)
	n.Update(scn, cam, id, b2, 1.0/60)

	if n.ViewState(id).Focus != (common.Vec3{}) {
		t.Fatal("reset must return focus to origin")
	}
	tr := scn.LocalTransform(cam)
	fwd := forwardFromEuler(tr.Rotation[0], tr.Rotation[1])
	toFocus := common.Vec3{}.Sub(tr.Position).Normalize()
	if fwd.Sub(toFocus).Length() > 1e-4 {
		t.Fatal("reset camera must look at the origin")
	}
}

func TestUpdateToleratesDeadCameraAndNilScene(t *testing.T) {
	scn, cam := navScene(t)
	n := NewNavigator(DefaultSpeeds())

	scn.DestroyNode(cam)
	n.Update(scn, cam, 1, Batch{MotionX: 10}, 1.0/60)
	n.Update(nil, cam, 1, Batch{MotionX: 10}, 1.0/60)
	n.Update(scn, cam, frame.InvalidViewId, Batch{MotionX: 10}, 1.0/60)
}

func TestForwardFromEulerInvertsLookRotation(t *testing.T) {
	dirs := []common.Vec3{
		{0, 0, -1}, {1, 0, 0}, {-1, 0, 0}, {0, 0.5, -1}, {0.3, -0.4, 0.6},
	}
	for _, d := range dirs {
		rot := common.LookRotation(d)
		got := forwardFromEuler(rot[0], rot[1])
		want := d.Normalize()
		if got.Sub(want).Length() > 1e-5 {
			t.Errorf("forwardFromEuler(LookRotation(%v)) = %v, want %v", d, got, want)
		}
	}
}

func TestBindingTableChords(t *testing.T) {
	tbl := NewBindingTable()
	tbl.Register(ActionOrbit, Binding{Button: ButtonLeft, Key: KeyLeftAlt})
	tbl.Register(ActionOrbit, Binding{Button: NoBinding, Key: NoBinding}) // ignored

	s := Snapshot{
		keysDown:    map[int]bool{KeyLeftAlt: true},
		buttonsDown: map[int]bool{ButtonLeft: true},
	}
	if !tbl.Active(ActionOrbit, s) {
		t.Fatal("full chord should be active")
	}
	s.buttonsDown[ButtonLeft] = false
	if tbl.Active(ActionOrbit, s) {
		t.Fatal("partial chord should be inactive")
	}

	tbl.Rebind(ActionOrbit, Binding{Button: ButtonMiddle, Key: NoBinding})
	s.buttonsDown[ButtonMiddle] = true
	if !tbl.Active(ActionOrbit, s) {
		t.Fatal("rebound chord should be active")
	}
	if len(tbl.Bindings(ActionOrbit)) != 1 {
		t.Fatal("rebind must replace prior chords")
	}
}
