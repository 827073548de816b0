package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/gpu"
)

// DrawKind selects the primitive topology of a drawable.
type DrawKind int

const (
	KindMesh DrawKind = iota
	KindLine
	KindLineSegments
	KindLineLoop
	KindPoints
	KindSprite
)

// Mode maps the drawable kind to a device primitive, honoring wireframe.
func (k DrawKind) Mode(wireframe bool) gpu.DrawMode {
	switch k {
	case KindLine:
		return gpu.LineStrip
	case KindLineSegments:
		return gpu.Lines
	case KindLineLoop:
		return gpu.LineLoop
	case KindPoints:
		return gpu.Points
	}
	if wireframe {
		return gpu.Lines
	}
	return gpu.Triangles
}

// Drawable is the renderable component of a node.
type Drawable struct {
	Disposable

	Kind     DrawKind
	Geometry *Geometry
	// Materials holds one material, or one per geometry group indexed by
	// Group.MaterialIndex.
	Materials []*Material

	// InstanceCount > 0 draws the geometry once per instance using the
	// per-instance InstanceMatrix (and optional InstanceColor) streams.
	InstanceCount  int
	InstanceMatrix *BufferAttribute
	InstanceColor  *BufferAttribute

	Skeleton        *Skeleton
	MorphInfluences []float32
}

// Dispose frees the GPU copies of the per-instance streams. Geometry and
// materials are disposed on their own.
func (d *Drawable) Dispose() {
	d.dispatchDispose()
}

// Material returns the first material.
func (d *Drawable) Material() *Material {
	if len(d.Materials) == 0 {
		return nil
	}
	return d.Materials[0]
}

// NewMesh creates a node drawing geo with the given materials.
func NewMesh(name string, geo *Geometry, materials ...*Material) *Node {
	n := NewNode(name)
	n.Drawable = &Drawable{Kind: KindMesh, Geometry: geo, Materials: materials}
	return n
}

// NewPoints creates a point-cloud node.
func NewPoints(name string, geo *Geometry, mat *Material) *Node {
	n := NewNode(name)
	n.Drawable = &Drawable{Kind: KindPoints, Geometry: geo, Materials: []*Material{mat}}
	return n
}

// NewLines creates a line node of the given line kind.
func NewLines(name string, kind DrawKind, geo *Geometry, mat *Material) *Node {
	n := NewNode(name)
	n.Drawable = &Drawable{Kind: kind, Geometry: geo, Materials: []*Material{mat}}
	return n
}

var spriteGeometry = sync.OnceValue(func() *Geometry {
	return createQuad("Sprite", 0.5)
})

// NewSprite creates a camera-facing unit quad. All sprites share one geometry.
func NewSprite(name string, mat *Material) *Node {
	n := NewNode(name)
	n.Drawable = &Drawable{Kind: KindSprite, Geometry: spriteGeometry(), Materials: []*Material{mat}}
	return n
}

// NewInstancedMesh creates a node drawing geo count times. Instance transforms
// start as identity; set them with SetInstanceMatrix.
func NewInstancedMesh(name string, geo *Geometry, mat *Material, count int) *Node {
	values := make([]float32, 16*count)
	id := mgl32.Ident4()
	for i := 0; i < count; i++ {
		copy(values[16*i:], id[:])
	}
	attr := NewFloat32Attribute(values, 16)
	attr.Divisor = 1
	attr.Usage = gpu.DynamicDraw

	n := NewMesh(name, geo, mat)
	n.Drawable.InstanceCount = count
	n.Drawable.InstanceMatrix = attr
	return n
}

// SetInstanceMatrix writes the transform of instance i and marks that span dirty.
func (d *Drawable) SetInstanceMatrix(i int, m mgl32.Mat4) {
	for c := 0; c < 16; c++ {
		d.InstanceMatrix.SetFloat32(i, c, m[c])
	}
	d.InstanceMatrix.AddUpdateRange(64*i, 64)
	d.InstanceMatrix.NeedsUpdate()
}

// InstanceBoundingSphere returns a sphere enclosing every instance of the geometry.
func (d *Drawable) InstanceBoundingSphere() Sphere {
	base := d.Geometry.BoundingSphere()
	if d.InstanceMatrix == nil || d.InstanceCount == 0 || base.Empty() {
		return base
	}
	box := EmptyAABB()
	for i := 0; i < d.InstanceCount; i++ {
		var m mgl32.Mat4
		for c := 0; c < 16; c++ {
			m[c] = d.InstanceMatrix.Float32(i, c)
		}
		s := base.ApplyMatrix4(m)
		r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
		box = box.ExpandByPoint(s.Center.Sub(r)).ExpandByPoint(s.Center.Add(r))
	}
	return Sphere{Center: box.Center(), Radius: box.Size().Len() / 2}
}
