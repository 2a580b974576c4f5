package mesh

import "testing"

func TestParseMeshType(t *testing.T) {
	cases := []struct {
		in   string
		want MeshType
		ok   bool
	}{
		{"cube", MeshCube, true},
		{"CUBE", MeshCube, true},
		{"  Sphere ", MeshSphere, true},
		{"ArrowGizmo", MeshArrowGizmo, true},
		{"torus", MeshTorus, true},
		{"pyramid", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, err := ParseMeshType(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ParseMeshType(%q) = %v, %v; want %v", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("ParseMeshType(%q) should fail", c.in)
		}
	}
}

func TestNewMeshTypeRejectsOutOfRange(t *testing.T) {
	if _, err := NewMeshType(-1); err == nil {
		t.Error("negative value accepted")
	}
	if _, err := NewMeshType(int(MeshTypeCount)); err == nil {
		t.Error("Count value accepted")
	}
	if got, err := NewMeshType(int(MeshTorus)); err != nil || got != MeshTorus {
		t.Errorf("valid value rejected: %v, %v", got, err)
	}
}

func TestGenerateAllShapes(t *testing.T) {
	for ty := MeshType(0); ty < MeshTypeCount; ty++ {
		m := Generate(ty)
		if m == nil {
			t.Fatalf("%v: nil mesh", ty)
		}
		if len(m.Positions) == 0 || len(m.Indices) == 0 {
			t.Errorf("%v: empty mesh", ty)
		}
		if len(m.Indices)%3 != 0 {
			t.Errorf("%v: index count %d not a multiple of 3", ty, len(m.Indices))
		}
		if len(m.Normals) != len(m.Positions) || len(m.UVs) != len(m.Positions) {
			t.Errorf("%v: attribute counts disagree", ty)
		}
		for _, idx := range m.Indices {
			if int(idx) >= len(m.Positions) {
				t.Fatalf("%v: index %d out of range", ty, idx)
			}
		}
		if m.Material == nil || m.Material.Name != "DefaultMaterial_"+ty.String() {
			t.Errorf("%v: wrong default material: %+v", ty, m.Material)
		}
		if !m.Material.Opaque {
			t.Errorf("%v: default material must be opaque", ty)
		}
	}
}

func TestCubeHasSixFaces(t *testing.T) {
	m := Generate(MeshCube)
	if len(m.Positions) != 24 {
		t.Errorf("cube vertices = %d, want 24", len(m.Positions))
	}
	if len(m.Indices) != 36 {
		t.Errorf("cube indices = %d, want 36", len(m.Indices))
	}
}

func TestGeneratedGeometrySharedIdentity(t *testing.T) {
	PurgeGeometryCache()
	const uri = GeneratedURIPrefix + "cube"

	g1 := GeneratedGeometry(uri)
	g2 := GeneratedGeometry(uri)
	if g1 == nil || g2 == nil {
		t.Fatal("generated geometry is nil")
	}
	if g1 != g2 {
		t.Error("same URI must return the same shared instance while alive")
	}
	if g1.Key.IsZero() {
		t.Error("geometry key must be derived, not zero")
	}

	other := GeneratedGeometry(GeneratedURIPrefix + "sphere")
	if other == g1 {
		t.Error("different URIs must not share an instance")
	}
	if other.Key == g1.Key {
		t.Error("different URIs must derive different keys")
	}
}

func TestGeneratedGeometryUnknownShape(t *testing.T) {
	if g := GeneratedGeometry(GeneratedURIPrefix + "dodecahedron"); g != nil {
		t.Error("unknown shape must yield nil")
	}
	if g := GeneratedGeometry("asset:Props/crate.glb"); g != nil {
		t.Error("non-generated URI must yield nil")
	}
}

func TestShapeTypeFromURI(t *testing.T) {
	ty, ok := ShapeTypeFromURI(GeneratedURIPrefix + "Torus")
	if !ok || ty != MeshTorus {
		t.Errorf("got %v, %v", ty, ok)
	}
	if _, ok := ShapeTypeFromURI("asset:Models/torus.glb"); ok {
		t.Error("content URI must not parse as generated shape")
	}
}

func TestIsOpaque(t *testing.T) {
	g := GeneratedGeometry(GeneratedURIPrefix + "quad")
	if !g.IsOpaque() {
		t.Error("default material geometry must be opaque")
	}
	g2 := &Geometry{Mesh: &Mesh{Material: &Material{Opaque: false}}}
	if g2.IsOpaque() {
		t.Error("transparent material reported opaque")
	}
	var nilGeo *Geometry
	if !nilGeo.IsOpaque() {
		t.Error("nil geometry defaults to opaque pass")
	}
}
