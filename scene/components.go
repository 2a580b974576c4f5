package scene

import (
	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/mesh"
)

// Renderable attaches geometry to a node for rendering.
type Renderable struct {
	Geometry *mesh.Geometry
}

// CameraKind selects the projection model of a Camera component.
type CameraKind int

const (
	// CameraPerspective projects with a vertical field of view.
	CameraPerspective CameraKind = iota
	// CameraOrthographic projects with a vertical half-height.
	CameraOrthographic
)

// Camera is the camera component of a node. Both projection parameter sets
// are kept so preset transitions can restore the previous projection.
type Camera struct {
	Kind CameraKind

	// FovY is the perspective vertical field of view in radians.
	FovY float32
	// OrthoHalfHeight is the orthographic vertical half extent.
	OrthoHalfHeight float32

	Aspect float32
	Near   float32
	Far    float32
}

// DefaultPerspective returns the editor's default perspective camera
// component.
func DefaultPerspective() Camera {
	return Camera{
		Kind:   CameraPerspective,
		FovY:   1.0471976, // 60 degrees
		Aspect: 1,
		Near:   0.1,
		Far:    1000,
	}
}

// ProjectionMatrix writes the camera's projection into out (16 elements,
// column-major).
func (c Camera) ProjectionMatrix(out []float32) {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	switch c.Kind {
	case CameraOrthographic:
		half := c.OrthoHalfHeight
		if half <= 0 {
			half = 1
		}
		common.Orthographic(out, half, aspect, c.Near, c.Far)
	default:
		common.Perspective(out, c.FovY, aspect, c.Near, c.Far)
	}
}
