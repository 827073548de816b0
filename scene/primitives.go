package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// meshBuilder accumulates separate vertex streams and turns them into an
// indexed Geometry.
type meshBuilder struct {
	positions []float32
	normals   []float32
	uvs       []float32
	indices   []uint32
	groups    []Group
}

func (b *meshBuilder) vertex(p, n mgl32.Vec3, u, v float32) uint32 {
	idx := uint32(len(b.positions) / 3)
	b.positions = append(b.positions, p[0], p[1], p[2])
	b.normals = append(b.normals, n[0], n[1], n[2])
	b.uvs = append(b.uvs, u, v)
	return idx
}

func (b *meshBuilder) tri(i0, i1, i2 uint32) {
	b.indices = append(b.indices, i0, i1, i2)
}

func (b *meshBuilder) build(name string) *Geometry {
	g := NewGeometry(name)
	g.SetAttribute("position", NewFloat32Attribute(b.positions, 3))
	g.SetAttribute("normal", NewFloat32Attribute(b.normals, 3))
	g.SetAttribute("uv", NewFloat32Attribute(b.uvs, 2))
	g.SetIndex(b.indices)
	g.Groups = b.groups
	return g
}

// CreateBox generates an axis-aligned box centered on the origin. Each face
// has its own four vertices so normals stay flat, and each face is a group so
// a mesh can use up to six materials.
func CreateBox(width, height, depth float32) *Geometry {
	hw, hh, hd := width/2, height/2, depth/2
	faces := []struct {
		n, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	half := mgl32.Vec3{hw, hh, hd}
	scale := func(v mgl32.Vec3) mgl32.Vec3 {
		return mgl32.Vec3{v[0] * half[0], v[1] * half[1], v[2] * half[2]}
	}

	var b meshBuilder
	for i, f := range faces {
		center := scale(f.n)
		du := scale(f.u)
		dv := scale(f.v)
		v0 := b.vertex(center.Sub(du).Sub(dv), f.n, 0, 0)
		v1 := b.vertex(center.Add(du).Sub(dv), f.n, 1, 0)
		v2 := b.vertex(center.Add(du).Add(dv), f.n, 1, 1)
		v3 := b.vertex(center.Sub(du).Add(dv), f.n, 0, 1)
		b.tri(v0, v1, v2)
		b.tri(v0, v2, v3)
		b.groups = append(b.groups, Group{Start: i * 6, Count: 6, MaterialIndex: i})
	}
	return b.build("Box")
}

// CreateCube is CreateBox with equal sides.
func CreateCube(size float32) *Geometry {
	return CreateBox(size, size, size)
}

// CreateSphere generates a UV sphere.
func CreateSphere(radius float32, segments, rings int) *Geometry {
	segments = max(segments, 3)
	rings = max(rings, 2)

	var b meshBuilder
	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * math.Pi / float64(rings)
		sinPhi, cosPhi := float32(math.Sin(phi)), float32(math.Cos(phi))

		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2 * math.Pi / float64(segments)
			sinTheta, cosTheta := float32(math.Sin(theta)), float32(math.Cos(theta))

			n := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			b.vertex(n.Mul(radius), n, float32(seg)/float32(segments), float32(ring)/float32(rings))
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)
			b.tri(current, current+1, next)
			b.tri(current+1, next+1, next)
		}
	}
	return b.build("Sphere")
}

// CreateCylinder generates a capped cylinder. A zero top radius makes a cone.
func CreateCylinder(radiusTop, radiusBottom, height float32, segments int) *Geometry {
	segments = max(segments, 3)
	halfHeight := height / 2

	var b meshBuilder
	slope := (radiusBottom - radiusTop) / height
	for i := 0; i <= segments; i++ {
		theta := float64(i) * 2 * math.Pi / float64(segments)
		cosT, sinT := float32(math.Cos(theta)), float32(math.Sin(theta))
		n := mgl32.Vec3{cosT, slope, sinT}.Normalize()
		u := float32(i) / float32(segments)

		b.vertex(mgl32.Vec3{cosT * radiusBottom, -halfHeight, sinT * radiusBottom}, n, u, 0)
		b.vertex(mgl32.Vec3{cosT * radiusTop, halfHeight, sinT * radiusTop}, n, u, 1)
	}
	for i := 0; i < segments; i++ {
		base := uint32(i * 2)
		b.tri(base, base+1, base+2)
		b.tri(base+2, base+1, base+3)
	}

	addCap := func(y, radius float32, up bool) {
		if radius <= 0 {
			return
		}
		n := mgl32.Vec3{0, 1, 0}
		if !up {
			n = mgl32.Vec3{0, -1, 0}
		}
		center := b.vertex(mgl32.Vec3{0, y, 0}, n, 0.5, 0.5)
		first := uint32(len(b.positions) / 3)
		for i := 0; i <= segments; i++ {
			theta := float64(i) * 2 * math.Pi / float64(segments)
			cosT, sinT := float32(math.Cos(theta)), float32(math.Sin(theta))
			b.vertex(mgl32.Vec3{cosT * radius, y, sinT * radius}, n, cosT*0.5+0.5, sinT*0.5+0.5)
		}
		for i := uint32(0); i < uint32(segments); i++ {
			if up {
				b.tri(center, first+i+1, first+i)
			} else {
				b.tri(center, first+i, first+i+1)
			}
		}
	}
	addCap(halfHeight, radiusTop, true)
	addCap(-halfHeight, radiusBottom, false)
	return b.build("Cylinder")
}

// CreateCone generates a cone with its apex at +height/2.
func CreateCone(radius, height float32, segments int) *Geometry {
	g := CreateCylinder(0, radius, height, segments)
	g.Name = "Cone"
	return g
}

// CreateTorus generates a torus in the XZ plane.
func CreateTorus(majorRadius, minorRadius float32, majorSegments, minorSegments int) *Geometry {
	majorSegments = max(majorSegments, 3)
	minorSegments = max(minorSegments, 3)

	var b meshBuilder
	for i := 0; i <= majorSegments; i++ {
		u := float64(i) * 2 * math.Pi / float64(majorSegments)
		cosU, sinU := float32(math.Cos(u)), float32(math.Sin(u))

		for j := 0; j <= minorSegments; j++ {
			v := float64(j) * 2 * math.Pi / float64(minorSegments)
			cosV, sinV := float32(math.Cos(v)), float32(math.Sin(v))

			n := mgl32.Vec3{cosV * cosU, sinV, cosV * sinU}
			p := mgl32.Vec3{(majorRadius + minorRadius*cosV) * cosU, minorRadius * sinV, (majorRadius + minorRadius*cosV) * sinU}
			b.vertex(p, n, float32(i)/float32(majorSegments), float32(j)/float32(minorSegments))
		}
	}

	for i := 0; i < majorSegments; i++ {
		for j := 0; j < minorSegments; j++ {
			current := uint32(i*(minorSegments+1) + j)
			next := uint32((i+1)*(minorSegments+1) + j)
			b.tri(current, current+1, next)
			b.tri(current+1, next+1, next)
		}
	}
	return b.build("Torus")
}

// CreatePlane generates a subdivided plane in XZ facing +Y.
func CreatePlane(width, depth float32, subdivisions int) *Geometry {
	subdivisions = max(subdivisions, 1)
	halfW, halfD := width/2, depth/2
	up := mgl32.Vec3{0, 1, 0}

	var b meshBuilder
	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			b.vertex(mgl32.Vec3{-halfW + u*width, 0, -halfD + v*depth}, up, u, v)
		}
	}

	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1
			b.tri(topLeft, bottomLeft, topRight)
			b.tri(topRight, bottomLeft, bottomRight)
		}
	}
	return b.build("Plane")
}

// CreateQuad generates a quad in XY facing +Z spanning [-1,1]. It is the
// geometry used for fullscreen passes.
func CreateQuad() *Geometry {
	return createQuad("Quad", 1)
}

func createQuad(name string, h float32) *Geometry {
	var b meshBuilder
	n := mgl32.Vec3{0, 0, 1}
	v0 := b.vertex(mgl32.Vec3{-h, -h, 0}, n, 0, 0)
	v1 := b.vertex(mgl32.Vec3{h, -h, 0}, n, 1, 0)
	v2 := b.vertex(mgl32.Vec3{h, h, 0}, n, 1, 1)
	v3 := b.vertex(mgl32.Vec3{-h, h, 0}, n, 0, 1)
	b.tri(v0, v1, v2)
	b.tri(v0, v2, v3)
	return b.build(name)
}

// CreatePyramid generates a square-based pyramid with flat-shaded sides.
func CreatePyramid(width, height float32) *Geometry {
	hw, hh := width/2, height/2
	apex := mgl32.Vec3{0, hh, 0}
	corners := [4]mgl32.Vec3{
		{-hw, -hh, -hw},
		{hw, -hh, -hw},
		{hw, -hh, hw},
		{-hw, -hh, hw},
	}

	var b meshBuilder
	down := mgl32.Vec3{0, -1, 0}
	b0 := b.vertex(corners[0], down, 0, 0)
	b1 := b.vertex(corners[1], down, 1, 0)
	b2 := b.vertex(corners[2], down, 1, 1)
	b3 := b.vertex(corners[3], down, 0, 1)
	b.tri(b0, b1, b2)
	b.tri(b0, b2, b3)

	for i := range corners {
		a, c := corners[i], corners[(i+1)%4]
		n := a.Sub(c).Cross(apex.Sub(c)).Normalize()
		i0 := b.vertex(a, n, 0, 0)
		i1 := b.vertex(c, n, 1, 0)
		i2 := b.vertex(apex, n, 0.5, 1)
		b.tri(i0, i2, i1)
	}
	return b.build("Pyramid")
}
