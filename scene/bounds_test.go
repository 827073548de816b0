package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraFrustum(t *testing.T) {
	cam := NewPerspectiveCamera(60, 1, 0.1, 100)
	cam.Node.UpdateMatrixWorld(false)
	f := cam.Frustum()

	assert.True(t, f.IntersectsSphere(Sphere{Center: mgl32.Vec3{0, 0, -10}, Radius: 1}))
	assert.False(t, f.IntersectsSphere(Sphere{Center: mgl32.Vec3{0, 0, 10}, Radius: 1}))
	assert.False(t, f.IntersectsSphere(Sphere{Center: mgl32.Vec3{0, 0, -200}, Radius: 1}))
	// Straddling the near plane still intersects.
	assert.True(t, f.IntersectsSphere(Sphere{Center: mgl32.Vec3{0, 0, 0.5}, Radius: 1}))

	assert.True(t, f.ContainsPoint(mgl32.Vec3{0, 0, -1}))
	assert.False(t, f.ContainsPoint(mgl32.Vec3{50, 0, -1}))

	assert.True(t, f.IntersectsBox(AABB{Min: mgl32.Vec3{-1, -1, -6}, Max: mgl32.Vec3{1, 1, -4}}))
	assert.False(t, f.IntersectsBox(AABB{Min: mgl32.Vec3{-1, -1, 4}, Max: mgl32.Vec3{1, 1, 6}}))
}

func TestSphereApplyMatrix(t *testing.T) {
	s := Sphere{Center: mgl32.Vec3{1, 0, 0}, Radius: 1}
	m := mgl32.Translate3D(0, 2, 0).Mul4(mgl32.Scale3D(1, 3, 2))
	out := s.ApplyMatrix4(m)

	assert.InDelta(t, 3, out.Radius, 1e-6)
	assert.True(t, out.Center.ApproxEqual(mgl32.Vec3{1, 2, 0}))
	assert.True(t, Sphere{Radius: -1}.Empty())
}

func TestAABB(t *testing.T) {
	box := EmptyAABB()
	assert.True(t, box.Empty())
	box = box.ExpandByPoint(mgl32.Vec3{-1, -2, -3}).ExpandByPoint(mgl32.Vec3{1, 2, 3})
	assert.False(t, box.Empty())
	assert.Equal(t, mgl32.Vec3{2, 4, 6}, box.Size())
	assert.Equal(t, mgl32.Vec3{}, box.Center())

	moved := box.ApplyMatrix4(mgl32.Translate3D(10, 0, 0))
	assert.True(t, moved.Min.ApproxEqual(mgl32.Vec3{9, -2, -3}))
	assert.True(t, moved.Max.ApproxEqual(mgl32.Vec3{11, 2, 3}))

	rotated := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}.
		ApplyMatrix4(mgl32.HomogRotate3DY(mgl32.DegToRad(45)))
	assert.InDelta(t, math.Sqrt2, rotated.Max.X(), 1e-5)
}

func TestPlaneApplyMatrix(t *testing.T) {
	p := Plane{Normal: mgl32.Vec3{0, 1, 0}, D: 0}
	m := mgl32.Translate3D(0, 3, 0)
	out := p.ApplyMatrix4(m, m.Mat3().Inv().Transpose())

	assert.InDelta(t, 0, out.DistanceTo(mgl32.Vec3{7, 3, -2}), 1e-6)
	assert.InDelta(t, 1, out.DistanceTo(mgl32.Vec3{0, 4, 0}), 1e-6)
}
