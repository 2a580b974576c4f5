// Package mesh provides procedural mesh generation for the editor's basic
// shapes and the deterministic, process-wide geometry cache that backs the
// generated-asset URI scheme.
package mesh

import (
	"fmt"
	"strings"

	"github.com/abdes/oxygen-interop/common"
)

// MeshType enumerates the recognized basic shapes.
type MeshType int

const (
	MeshCube MeshType = iota
	MeshSphere
	MeshPlane
	MeshCylinder
	MeshCone
	MeshTorus
	MeshQuad
	MeshArrowGizmo
	// MeshTypeCount is the number of mesh types; not a valid type itself.
	MeshTypeCount
)

var meshTypeNames = [MeshTypeCount]string{
	"cube", "sphere", "plane", "cylinder", "cone", "torus", "quad", "arrowgizmo",
}

// NewMeshType validates a raw value into a MeshType.
//
// Parameters:
//   - v: the raw value
//
// Returns:
//   - MeshType: the validated type
//   - error: when v is outside [0, MeshTypeCount)
func NewMeshType(v int) (MeshType, error) {
	if v < 0 || v >= int(MeshTypeCount) {
		return 0, fmt.Errorf("mesh type %d out of range [0, %d)", v, int(MeshTypeCount))
	}
	return MeshType(v), nil
}

// String returns the canonical lowercase name of the type.
func (t MeshType) String() string {
	if t < 0 || t >= MeshTypeCount {
		return "invalid"
	}
	return meshTypeNames[t]
}

// ParseMeshType resolves a case-insensitive shape name to its MeshType.
//
// Parameters:
//   - s: the shape name, any case
//
// Returns:
//   - MeshType: the resolved type
//   - error: when the name is not a recognized shape
func ParseMeshType(s string) (MeshType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range meshTypeNames {
		if n == name {
			return MeshType(i), nil
		}
	}
	return 0, fmt.Errorf("unrecognized mesh type %q", s)
}

// Material is the surface description attached to a mesh. Procedural shapes
// get a default opaque material named after their type.
type Material struct {
	Name      string
	BaseColor common.Color
	Opaque    bool
}

// DefaultMaterial builds the default opaque material for a shape type,
// named "DefaultMaterial_<type>".
func DefaultMaterial(t MeshType) *Material {
	return &Material{
		Name:      "DefaultMaterial_" + t.String(),
		BaseColor: common.Color{0.8, 0.8, 0.8, 1},
		Opaque:    true,
	}
}

// Mesh is a single-submesh triangle mesh.
type Mesh struct {
	Name      string
	Positions []common.Vec3
	Normals   []common.Vec3
	UVs       [][2]float32
	Indices   []uint32
	Material  *Material
}

// IndexCount returns the number of indices (3 per triangle).
func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// Geometry is the asset wrapper around a mesh, addressed by a 16-byte key.
type Geometry struct {
	Key  common.Key
	Name string
	Mesh *Mesh
}

// IsOpaque reports whether the geometry's material is opaque. Geometry
// without a material renders in the opaque pass.
func (g *Geometry) IsOpaque() bool {
	if g == nil || g.Mesh == nil || g.Mesh.Material == nil {
		return true
	}
	return g.Mesh.Material.Opaque
}
