package common

import "math"

// All 4x4 matrices are flat [16]float32 views in column-major order
// (WebGPU/OpenGL convention, clip space depth [0, 1]).

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// Result: out = a * b. out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective creates a perspective projection matrix with a [0, 1] clip
// space depth range.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// Orthographic creates an orthographic projection matrix from a vertical
// half-height and aspect ratio, with a [0, 1] clip space depth range.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - halfHeight: half the vertical extent of the view volume
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance
//   - far: far clipping plane distance (must differ from near)
func Orthographic(out []float32, halfHeight, aspect, near, far float32) {
	halfWidth := halfHeight * aspect
	Identity(out)

	out[0] = 1 / halfWidth
	out[5] = 1 / halfHeight
	out[10] = 1 / (near - far)
	out[14] = near / (near - far)
}

// LookAt creates a view matrix that positions and orients a camera at eye
// looking toward center with the given up vector. The resulting matrix
// transforms world coordinates to view space.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera roll (typically WorldUp)
func LookAt(out []float32, eye, center, up Vec3) {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	out[0] = s[0]
	out[1] = u[0]
	out[2] = -f[0]
	out[3] = 0

	out[4] = s[1]
	out[5] = u[1]
	out[6] = -f[1]
	out[7] = 0

	out[8] = s[2]
	out[9] = u[2]
	out[10] = -f[2]
	out[11] = 0

	out[12] = -s.Dot(eye)
	out[13] = -u.Dot(eye)
	out[14] = f.Dot(eye)
	out[15] = 1
}

// ComposeTRS constructs a 4x4 model matrix from position, Euler rotation,
// and scale. The rotation order is Y * X * Z (yaw-pitch-roll).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - position: translation in world (or parent) space
//   - rotation: Euler angles in radians around each axis
//   - scale: scale factors along each axis
func ComposeTRS(out []float32, position, rotation, scale Vec3) {
	cx := float32(math.Cos(float64(rotation[0])))
	sx := float32(math.Sin(float64(rotation[0])))
	cy := float32(math.Cos(float64(rotation[1])))
	sy := float32(math.Sin(float64(rotation[1])))
	cz := float32(math.Cos(float64(rotation[2])))
	sz := float32(math.Sin(float64(rotation[2])))

	// R = Ry * Rx * Rz, column-major.
	out[0] = (cy*cz + sy*sx*sz) * scale[0]
	out[1] = (cx * sz) * scale[0]
	out[2] = (-sy*cz + cy*sx*sz) * scale[0]
	out[3] = 0

	out[4] = (cy*-sz + sy*sx*cz) * scale[1]
	out[5] = (cx * cz) * scale[1]
	out[6] = (sy*sz + cy*sx*cz) * scale[1]
	out[7] = 0

	out[8] = (sy * cx) * scale[2]
	out[9] = -sx * scale[2]
	out[10] = (cy * cx) * scale[2]
	out[11] = 0

	out[12] = position[0]
	out[13] = position[1]
	out[14] = position[2]
	out[15] = 1
}

// TransformPoint applies a 4x4 column-major matrix to a point (w = 1).
//
// Parameters:
//   - m: the matrix (16 elements)
//   - p: the point to transform
//
// Returns:
//   - Vec3: the transformed point
func TransformPoint(m []float32, p Vec3) Vec3 {
	return Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// LookRotation computes Euler angles (pitch, yaw, 0) that orient the -Z
// forward axis along dir. Used to point cameras at a focus point without
// carrying a quaternion representation.
//
// Parameters:
//   - dir: the desired forward direction (need not be normalized)
//
// Returns:
//   - Vec3: Euler angles in radians (X = pitch, Y = yaw, Z = 0)
func LookRotation(dir Vec3) Vec3 {
	d := dir.Normalize()
	yaw := float32(math.Atan2(float64(-d[0]), float64(-d[2])))
	pitch := float32(math.Asin(float64(d[1])))
	return Vec3{pitch, yaw, 0}
}
