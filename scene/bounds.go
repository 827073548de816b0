package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a half-space: Normal·p + D = 0.
// Normal points into the "inside" of the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// ApplyMatrix4 transforms the plane by m. normalMatrix is the inverse transpose of m's 3x3.
func (p Plane) ApplyMatrix4(m mgl32.Mat4, normalMatrix mgl32.Mat3) Plane {
	coplanar := mgl32.TransformCoordinate(p.Normal.Mul(-p.D), m)
	n := normalMatrix.Mul3x1(p.Normal).Normalize()
	return Plane{Normal: n, D: -coplanar.Dot(n)}
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromMatrix extracts the six frustum planes from a projection*view matrix
// (Gribb/Hartmann). The planes are normalized so DistanceTo returns a true distance
// in world units.
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	var f Frustum
	f.Planes[0] = normalizePlane(r3.Add(r0))
	f.Planes[1] = normalizePlane(r3.Sub(r0))
	f.Planes[2] = normalizePlane(r3.Add(r1))
	f.Planes[3] = normalizePlane(r3.Sub(r1))
	f.Planes[4] = normalizePlane(r3.Add(r2))
	f.Planes[5] = normalizePlane(r3.Sub(r2))
	return f
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

// IntersectsSphere returns false if the sphere is completely outside the frustum.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether pt lies inside all six planes.
func (f *Frustum) ContainsPoint(pt mgl32.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(pt) < 0 {
			return false
		}
	}
	return true
}

// IntersectsBox returns false if the box is completely outside the frustum.
// Uses the "p-vertex" test: for each plane, check whether the corner most
// aligned with the plane normal is outside.
func (f *Frustum) IntersectsBox(box AABB) bool {
	for i := range f.Planes {
		p := f.Planes[i]
		v := box.Max
		if p.Normal.X() < 0 {
			v[0] = box.Min.X()
		}
		if p.Normal.Y() < 0 {
			v[1] = box.Min.Y()
		}
		if p.Normal.Z() < 0 {
			v[2] = box.Min.Z()
		}
		if p.DistanceTo(v) < 0 {
			return false
		}
	}
	return true
}

// Sphere is a bounding sphere. A negative radius marks it empty.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func (s Sphere) Empty() bool {
	return s.Radius < 0
}

// ApplyMatrix4 returns the sphere transformed by m. The radius is scaled by the
// largest axis scale of m, which keeps the result conservative.
func (s Sphere) ApplyMatrix4(m mgl32.Mat4) Sphere {
	return Sphere{
		Center: mgl32.TransformCoordinate(s.Center, m),
		Radius: s.Radius * MaxScaleOnAxis(m),
	}
}

// MaxScaleOnAxis returns the largest basis vector length of m.
func MaxScaleOnAxis(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().LenSqr()
	sy := m.Col(1).Vec3().LenSqr()
	sz := m.Col(2).Vec3().LenSqr()
	return float32(math.Sqrt(float64(max(sx, sy, sz))))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any ExpandByPoint call replaces.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (box AABB) Empty() bool {
	return box.Max.X() < box.Min.X() || box.Max.Y() < box.Min.Y() || box.Max.Z() < box.Min.Z()
}

func (box AABB) ExpandByPoint(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		box.Min[i] = min(box.Min[i], p[i])
		box.Max[i] = max(box.Max[i], p[i])
	}
	return box
}

func (box AABB) Union(o AABB) AABB {
	if o.Empty() {
		return box
	}
	return box.ExpandByPoint(o.Min).ExpandByPoint(o.Max)
}

func (box AABB) Center() mgl32.Vec3 {
	return box.Min.Add(box.Max).Mul(0.5)
}

func (box AABB) Size() mgl32.Vec3 {
	return box.Max.Sub(box.Min)
}

// Corners returns the eight box corners.
func (box AABB) Corners() [8]mgl32.Vec3 {
	mn, mx := box.Min, box.Max
	return [8]mgl32.Vec3{
		{mn[0], mn[1], mn[2]},
		{mx[0], mn[1], mn[2]},
		{mn[0], mx[1], mn[2]},
		{mx[0], mx[1], mn[2]},
		{mn[0], mn[1], mx[2]},
		{mx[0], mn[1], mx[2]},
		{mn[0], mx[1], mx[2]},
		{mx[0], mx[1], mx[2]},
	}
}

// ApplyMatrix4 transforms a box by testing all 8 corners.
func (box AABB) ApplyMatrix4(m mgl32.Mat4) AABB {
	if box.Empty() {
		return box
	}
	out := EmptyAABB()
	for _, c := range box.Corners() {
		out = out.ExpandByPoint(mgl32.TransformCoordinate(c, m))
	}
	return out
}
