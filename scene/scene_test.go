package scene

import (
	"math"
	"testing"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/mesh"
)

func TestCreateAndLookup(t *testing.T) {
	s := New("test")
	h := s.CreateNode("root")
	if !h.IsValid() || !s.IsAlive(h) {
		t.Fatal("created node not alive")
	}
	if s.NodeName(h) != "root" {
		t.Errorf("name = %q", s.NodeName(h))
	}

	child := s.CreateChildNode(h, "child")
	if s.Parent(child) != h {
		t.Error("child parent mismatch")
	}
	kids := s.Children(h)
	if len(kids) != 1 || kids[0] != child {
		t.Errorf("children = %v", kids)
	}
}

func TestStaleHandlesAreNoops(t *testing.T) {
	s := New("test")
	h := s.CreateNode("doomed")
	s.DestroyNode(h)

	if s.IsAlive(h) {
		t.Fatal("destroyed node still alive")
	}
	// None of these may panic or mutate anything.
	s.Rename(h, "x")
	s.SetLocalTransform(h, IdentityTransform())
	s.SetVisible(h, true)
	s.Reparent(h, NodeHandle{})
	s.DestroyNode(h)
	s.DestroyNodeHierarchy(h)
	s.SetRenderable(h, nil)
	s.DetachRenderable(h)
	if s.NodeName(h) != "" {
		t.Error("stale handle returned a name")
	}
}

func TestGenerationPreventsSlotReuseAliasing(t *testing.T) {
	s := New("test")
	h1 := s.CreateNode("first")
	s.DestroyNode(h1)
	h2 := s.CreateNode("second") // reuses the slot

	if s.IsAlive(h1) {
		t.Error("old handle must not address the recycled slot")
	}
	if !s.IsAlive(h2) {
		t.Error("new handle must be alive")
	}
	if s.NodeName(h1) == "second" {
		t.Error("stale handle aliased the new node")
	}
}

func TestDestroyHierarchy(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	a := s.CreateChildNode(root, "a")
	b := s.CreateChildNode(a, "b")
	c := s.CreateChildNode(b, "c")

	s.DestroyNodeHierarchy(a)
	for _, h := range []NodeHandle{a, b, c} {
		if s.IsAlive(h) {
			t.Errorf("subtree node %v survived", h)
		}
	}
	if !s.IsAlive(root) {
		t.Error("root must survive")
	}
	if len(s.Children(root)) != 0 {
		t.Error("root still lists destroyed child")
	}
}

func TestDestroySingleReparentsChildren(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	mid := s.CreateChildNode(root, "mid")
	leaf := s.CreateChildNode(mid, "leaf")

	s.DestroyNode(mid)
	if !s.IsAlive(leaf) {
		t.Fatal("leaf must survive single-node destroy")
	}
	if s.Parent(leaf) != root {
		t.Error("leaf not reparented to grandparent")
	}
}

func TestReparentRejectsCycles(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	a := s.CreateChildNode(root, "a")
	b := s.CreateChildNode(a, "b")

	s.Reparent(a, b) // would create a cycle
	if s.Parent(a) != root {
		t.Error("cycle-creating reparent must be ignored")
	}

	s.Reparent(b, root)
	if s.Parent(b) != root {
		t.Error("legal reparent failed")
	}
	if len(s.Children(a)) != 0 {
		t.Error("old parent still lists moved child")
	}
}

func TestWorldTransformComposition(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	child := s.CreateChildNode(root, "child")

	tr := IdentityTransform()
	tr.Position = common.Vec3{10, 0, 0}
	s.SetLocalTransform(root, tr)

	tr2 := IdentityTransform()
	tr2.Position = common.Vec3{0, 5, 0}
	s.SetLocalTransform(child, tr2)

	s.UpdateWorldTransforms(child)
	w := s.WorldMatrix(child)
	p := common.TransformPoint(w[:], common.Vec3{})
	if math.Abs(float64(p[0]-10)) > 1e-5 || math.Abs(float64(p[1]-5)) > 1e-5 {
		t.Errorf("world position = %v, want (10, 5, 0)", p)
	}
}

func TestUpdateWorldAsRoot(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	child := s.CreateChildNode(root, "child")

	tr := IdentityTransform()
	tr.Position = common.Vec3{100, 0, 0}
	s.SetLocalTransform(root, tr)

	tr2 := IdentityTransform()
	tr2.Position = common.Vec3{1, 2, 3}
	s.SetLocalTransform(child, tr2)

	s.UpdateWorldAsRoot(child)
	w := s.WorldMatrix(child)
	p := common.TransformPoint(w[:], common.Vec3{})
	if p != (common.Vec3{1, 2, 3}) {
		t.Errorf("world-as-root position = %v, want local", p)
	}
}

func TestRenderableAndVisibility(t *testing.T) {
	s := New("test")
	a := s.CreateNode("a")
	b := s.CreateNode("b")

	geo := mesh.GeneratedGeometry(mesh.GeneratedURIPrefix + "cube")
	s.SetRenderable(a, geo)
	s.SetRenderable(b, geo)
	s.SetVisible(b, false)

	rows := s.VisibleRenderables()
	if len(rows) != 1 {
		t.Fatalf("visible renderables = %d, want 1", len(rows))
	}
	if rows[0].Handle != a || rows[0].Geometry != geo {
		t.Error("wrong renderable row")
	}

	s.DetachRenderable(a)
	if len(s.VisibleRenderables()) != 0 {
		t.Error("detached renderable still listed")
	}
}

func TestCameraComponent(t *testing.T) {
	s := New("test")
	n := s.CreateNode("cam")
	if _, ok := s.CameraOf(n); ok {
		t.Error("node should have no camera yet")
	}

	cam := DefaultPerspective()
	cam.Aspect = 16.0 / 9.0
	s.SetCamera(n, cam)

	got, ok := s.CameraOf(n)
	if !ok || got.Aspect != cam.Aspect {
		t.Errorf("camera roundtrip failed: %+v, %v", got, ok)
	}

	// CameraOf returns a copy; mutating it must not affect the component.
	got.Aspect = 1
	again, _ := s.CameraOf(n)
	if again.Aspect != 16.0/9.0 {
		t.Error("camera component aliased by copy")
	}
}

func TestFindChildByName(t *testing.T) {
	s := New("test")
	root := s.CreateNode("root")
	s.CreateChildNode(root, "Player")
	s.CreateChildNode(root, "Enemy")

	h, ok := s.FindChildByName(root, "Player")
	if !ok || s.NodeName(h) != "Player" {
		t.Error("FindChildByName failed")
	}
	if _, ok := s.FindChildByName(root, "Ghost"); ok {
		t.Error("found nonexistent child")
	}
}

func TestNodeRegistry(t *testing.T) {
	r := NewNodeRegistry()
	s := New("test")
	h := s.CreateNode("n")

	var key common.Key
	key[0] = 0xAB

	r.Register(key, h)
	got, ok := r.Lookup(key)
	if !ok || got != h {
		t.Error("lookup after register failed")
	}
	if !r.Unregister(key) {
		t.Error("unregister reported missing key")
	}
	if r.Unregister(key) {
		t.Error("double unregister reported success")
	}
	if _, ok := r.Lookup(key); ok {
		t.Error("lookup after unregister succeeded")
	}

	r.Register(key, h)
	r.ClearAll()
	if r.Len() != 0 {
		t.Error("ClearAll left entries")
	}
}
