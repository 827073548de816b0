package scene

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line from Origin along the unit vector Direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is one ray intersection with a mesh triangle.
type Hit struct {
	Distance float32
	Point    mgl32.Vec3
	// Normal is the face normal, turned to face the ray.
	Normal mgl32.Vec3
	Node   *Node
	Face   int
}

// ScreenRay returns the world-space ray through pixel (x, y) of a
// width x height viewport, with y growing downwards.
func (c *Camera) ScreenRay(x, y, width, height float32) Ray {
	c.Node.UpdateWorldMatrix(true, false)
	inv := c.Node.WorldMatrix().Mul4(c.projectionInverse)
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, inv)
	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

// IntersectBox returns the entry distance of r into box. A ray starting
// inside the box reports a negative distance.
func (r Ray) IntersectBox(box AABB) (float32, bool) {
	if box.Empty() {
		return 0, false
	}
	tmin := float32(math.Inf(-1))
	tmax := float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		inv := 1 / r.Direction[i]
		t1 := (box.Min[i] - r.Origin[i]) * inv
		t2 := (box.Max[i] - r.Origin[i]) * inv
		tmin = max(tmin, min(t1, t2))
		tmax = min(tmax, max(t1, t2))
	}
	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return tmin, true
}

// IntersectTriangle is the Möller-Trumbore test. Both faces count.
func (r Ray) IntersectTriangle(v0, v1, v2 mgl32.Vec3) (float32, bool) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := r.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, false // parallel
	}

	f := 1 / a
	s := r.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := f * edge2.Dot(q)
	return t, t > epsilon
}

// Raycast returns every triangle hit under root, nearest first. Only visible,
// non-instanced meshes are tested and world matrices must be current.
func Raycast(root *Node, ray Ray) []Hit {
	var hits []Hit
	root.TraverseVisible(func(n *Node) {
		d := n.Drawable
		if d == nil || d.Kind != KindMesh || d.InstanceCount > 0 || d.Geometry == nil {
			return
		}
		world := n.WorldMatrix()
		// Broad phase on the world-space bounds.
		if _, ok := ray.IntersectBox(d.Geometry.BoundingBox().ApplyMatrix4(world)); !ok {
			return
		}
		if hit, ok := raycastGeometry(ray, n, world); ok {
			hits = append(hits, hit)
		}
	})
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return hits
}

// raycastGeometry returns the nearest triangle of n hit by ray.
func raycastGeometry(ray Ray, n *Node, world mgl32.Mat4) (Hit, bool) {
	geo := n.Drawable.Geometry
	pos := geo.Attribute("position")
	if pos == nil {
		return Hit{}, false
	}
	count := pos.Count()
	vertex := func(i int) int { return i }
	if geo.Index != nil {
		count = geo.Index.Count()
		vertex = func(i int) int { return int(geo.Index.Index(i)) }
	}

	best := Hit{Distance: float32(math.Inf(1))}
	found := false
	for i := 0; i+2 < count; i += 3 {
		v0 := mgl32.TransformCoordinate(pos.Vec3(vertex(i)), world)
		v1 := mgl32.TransformCoordinate(pos.Vec3(vertex(i+1)), world)
		v2 := mgl32.TransformCoordinate(pos.Vec3(vertex(i+2)), world)
		t, ok := ray.IntersectTriangle(v0, v1, v2)
		if !ok || t >= best.Distance {
			continue
		}
		normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		if normal.Dot(ray.Direction) > 0 {
			normal = normal.Mul(-1)
		}
		best = Hit{Distance: t, Point: ray.At(t), Normal: normal, Node: n, Face: i / 3}
		found = true
	}
	return best, found
}
