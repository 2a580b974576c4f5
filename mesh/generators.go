package mesh

import (
	"math"

	"github.com/abdes/oxygen-interop/common"
)

// Tessellation constants for the curved shapes. Chosen for editor preview
// quality rather than runtime budgets.
const (
	sphereSegments   = 32
	sphereRings      = 16
	cylinderSegments = 32
	coneSegments     = 32
	torusMajorSegs   = 32
	torusMinorSegs   = 16
	planeGrid        = 10
)

// Generate builds the unit mesh for a shape type with its default material.
//
// Parameters:
//   - t: the shape to generate
//
// Returns:
//   - *Mesh: the generated single-submesh mesh
func Generate(t MeshType) *Mesh {
	var m *Mesh
	switch t {
	case MeshCube:
		m = generateCube()
	case MeshSphere:
		m = generateSphere()
	case MeshPlane:
		m = generatePlane()
	case MeshCylinder:
		m = generateCylinder()
	case MeshCone:
		m = generateCone()
	case MeshTorus:
		m = generateTorus()
	case MeshQuad:
		m = generateQuad()
	case MeshArrowGizmo:
		m = generateArrowGizmo()
	default:
		return nil
	}
	m.Name = t.String()
	m.Material = DefaultMaterial(t)
	return m
}

// builder accumulates vertex data during generation.
type builder struct {
	positions []common.Vec3
	normals   []common.Vec3
	uvs       [][2]float32
	indices   []uint32
}

func (b *builder) vertex(p, n common.Vec3, u, v float32) uint32 {
	b.positions = append(b.positions, p)
	b.normals = append(b.normals, n)
	b.uvs = append(b.uvs, [2]float32{u, v})
	return uint32(len(b.positions) - 1)
}

func (b *builder) tri(a, c, d uint32) {
	b.indices = append(b.indices, a, c, d)
}

func (b *builder) quad(a, c, d, e uint32) {
	b.tri(a, c, d)
	b.tri(a, d, e)
}

func (b *builder) mesh() *Mesh {
	return &Mesh{
		Positions: b.positions,
		Normals:   b.normals,
		UVs:       b.uvs,
		Indices:   b.indices,
	}
}

// generateCube builds a unit cube centered at the origin with per-face
// normals (24 vertices, 36 indices).
func generateCube() *Mesh {
	b := &builder{}
	faces := []struct {
		normal common.Vec3
		right  common.Vec3
		up     common.Vec3
	}{
		{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}},   // +Z
		{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}, common.Vec3{0, 1, 0}}, // -Z
		{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0}},  // +X
		{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}, common.Vec3{0, 1, 0}},  // -X
		{common.Vec3{0, 1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}},  // +Y
		{common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1}},  // -Y
	}
	for _, f := range faces {
		center := f.normal.Scale(0.5)
		r := f.right.Scale(0.5)
		u := f.up.Scale(0.5)
		v0 := b.vertex(center.Sub(r).Sub(u), f.normal, 0, 1)
		v1 := b.vertex(center.Add(r).Sub(u), f.normal, 1, 1)
		v2 := b.vertex(center.Add(r).Add(u), f.normal, 1, 0)
		v3 := b.vertex(center.Sub(r).Add(u), f.normal, 0, 0)
		b.quad(v0, v1, v2, v3)
	}
	return b.mesh()
}

// generateSphere builds a unit-diameter lat/long sphere.
func generateSphere() *Mesh {
	b := &builder{}
	for ring := 0; ring <= sphereRings; ring++ {
		phi := math.Pi * float64(ring) / float64(sphereRings)
		y := float32(math.Cos(phi))
		r := float32(math.Sin(phi))
		for seg := 0; seg <= sphereSegments; seg++ {
			theta := 2 * math.Pi * float64(seg) / float64(sphereSegments)
			n := common.Vec3{r * float32(math.Cos(theta)), y, r * float32(math.Sin(theta))}
			b.vertex(n.Scale(0.5), n,
				float32(seg)/float32(sphereSegments),
				float32(ring)/float32(sphereRings))
		}
	}
	stride := uint32(sphereSegments + 1)
	for ring := uint32(0); ring < sphereRings; ring++ {
		for seg := uint32(0); seg < sphereSegments; seg++ {
			a := ring*stride + seg
			b.quad(a, a+1, a+stride+1, a+stride)
		}
	}
	return b.mesh()
}

// generatePlane builds a unit XZ plane subdivided into a grid, facing +Y.
func generatePlane() *Mesh {
	b := &builder{}
	n := common.Vec3{0, 1, 0}
	for z := 0; z <= planeGrid; z++ {
		for x := 0; x <= planeGrid; x++ {
			u := float32(x) / planeGrid
			v := float32(z) / planeGrid
			b.vertex(common.Vec3{u - 0.5, 0, v - 0.5}, n, u, v)
		}
	}
	stride := uint32(planeGrid + 1)
	for z := uint32(0); z < planeGrid; z++ {
		for x := uint32(0); x < planeGrid; x++ {
			a := z*stride + x
			b.quad(a, a+stride, a+stride+1, a+1)
		}
	}
	return b.mesh()
}

// generateQuad builds a single unit quad in the XY plane facing +Z.
func generateQuad() *Mesh {
	b := &builder{}
	n := common.Vec3{0, 0, 1}
	v0 := b.vertex(common.Vec3{-0.5, -0.5, 0}, n, 0, 1)
	v1 := b.vertex(common.Vec3{0.5, -0.5, 0}, n, 1, 1)
	v2 := b.vertex(common.Vec3{0.5, 0.5, 0}, n, 1, 0)
	v3 := b.vertex(common.Vec3{-0.5, 0.5, 0}, n, 0, 0)
	b.quad(v0, v1, v2, v3)
	return b.mesh()
}

// lathe appends an uncapped side surface of revolution between two radii.
// Shared by cylinder, cone, and the arrow gizmo.
func lathe(b *builder, bottomRadius, topRadius, yBottom, yTop float32, segments int) {
	slope := (bottomRadius - topRadius) / (yTop - yBottom)
	for seg := 0; seg <= segments; seg++ {
		theta := 2 * math.Pi * float64(seg) / float64(segments)
		c := float32(math.Cos(theta))
		s := float32(math.Sin(theta))
		n := common.Vec3{c, slope, s}.Normalize()
		u := float32(seg) / float32(segments)
		b.vertex(common.Vec3{bottomRadius * c, yBottom, bottomRadius * s}, n, u, 1)
		b.vertex(common.Vec3{topRadius * c, yTop, topRadius * s}, n, u, 0)
	}
	base := uint32(len(b.positions)) - uint32(2*(segments+1))
	for seg := uint32(0); seg < uint32(segments); seg++ {
		a := base + seg*2
		b.quad(a, a+2, a+3, a+1)
	}
}

// endCap appends a flat disc at height y facing up or down.
func endCap(b *builder, radius, y float32, up bool, segments int) {
	normal := common.Vec3{0, 1, 0}
	if !up {
		normal = common.Vec3{0, -1, 0}
	}
	center := b.vertex(common.Vec3{0, y, 0}, normal, 0.5, 0.5)
	for seg := 0; seg <= segments; seg++ {
		theta := 2 * math.Pi * float64(seg) / float64(segments)
		c := float32(math.Cos(theta))
		s := float32(math.Sin(theta))
		b.vertex(common.Vec3{radius * c, y, radius * s}, normal, 0.5+c/2, 0.5+s/2)
	}
	first := center + 1
	for seg := uint32(0); seg < uint32(segments); seg++ {
		if up {
			b.tri(center, first+seg+1, first+seg)
		} else {
			b.tri(center, first+seg, first+seg+1)
		}
	}
}

// generateCylinder builds a unit-height, unit-diameter capped cylinder.
func generateCylinder() *Mesh {
	b := &builder{}
	lathe(b, 0.5, 0.5, -0.5, 0.5, cylinderSegments)
	endCap(b, 0.5, 0.5, true, cylinderSegments)
	endCap(b, 0.5, -0.5, false, cylinderSegments)
	return b.mesh()
}

// generateCone builds a unit-height cone with a unit-diameter base.
func generateCone() *Mesh {
	b := &builder{}
	lathe(b, 0.5, 0.001, -0.5, 0.5, coneSegments)
	endCap(b, 0.5, -0.5, false, coneSegments)
	return b.mesh()
}

// generateTorus builds a torus with major radius 0.35 and minor radius 0.15,
// bounding it inside the unit cube.
func generateTorus() *Mesh {
	const major, minor = 0.35, 0.15
	b := &builder{}
	for i := 0; i <= torusMajorSegs; i++ {
		phi := 2 * math.Pi * float64(i) / float64(torusMajorSegs)
		cp := float32(math.Cos(phi))
		sp := float32(math.Sin(phi))
		ringCenter := common.Vec3{major * cp, 0, major * sp}
		for j := 0; j <= torusMinorSegs; j++ {
			theta := 2 * math.Pi * float64(j) / float64(torusMinorSegs)
			ct := float32(math.Cos(theta))
			st := float32(math.Sin(theta))
			n := common.Vec3{cp * ct, st, sp * ct}
			b.vertex(ringCenter.Add(n.Scale(minor)), n,
				float32(i)/float32(torusMajorSegs),
				float32(j)/float32(torusMinorSegs))
		}
	}
	stride := uint32(torusMinorSegs + 1)
	for i := uint32(0); i < torusMajorSegs; i++ {
		for j := uint32(0); j < torusMinorSegs; j++ {
			a := i*stride + j
			b.quad(a, a+stride, a+stride+1, a+1)
		}
	}
	return b.mesh()
}

// generateArrowGizmo builds a +Y pointing arrow: a thin shaft topped by a
// cone head. Used by the editor's transform gizmos.
func generateArrowGizmo() *Mesh {
	b := &builder{}
	// Shaft: 70% of the height, 6% diameter.
	lathe(b, 0.03, 0.03, -0.5, 0.2, cylinderSegments)
	endCap(b, 0.03, -0.5, false, cylinderSegments)
	// Head: remaining 30%, 20% diameter base.
	lathe(b, 0.1, 0.001, 0.2, 0.5, coneSegments)
	endCap(b, 0.1, 0.2, false, coneSegments)
	return b.mesh()
}
