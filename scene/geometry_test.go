package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/gpu"
)

func TestIndexAttributeWidth(t *testing.T) {
	small := NewIndexAttribute([]uint32{0, 1, 65535})
	assert.Equal(t, gpu.UnsignedShort, small.Type)
	assert.Equal(t, 6, small.ByteLength())
	assert.Equal(t, uint32(65535), small.Index(2))

	wide := NewIndexAttribute([]uint32{0, 70000})
	assert.Equal(t, gpu.UnsignedInt, wide.Type)
	assert.Equal(t, uint32(70000), wide.Index(1))
}

func TestAttributeWriteTracksRange(t *testing.T) {
	a := NewBufferAttribute(make([]byte, 10000), 4, gpu.UnsignedByte)
	v := a.Version()

	a.Write(100, make([]byte, 10))
	assert.Equal(t, v+1, a.Version())
	assert.Equal(t, []Range{{Offset: 100, Length: 10}}, a.UpdateRanges())

	a.ClearUpdateRanges()
	assert.Empty(t, a.UpdateRanges())
	assert.Equal(t, 2500, a.Count())
}

func TestAttributeFloatAccess(t *testing.T) {
	a := NewFloat32Attribute([]float32{1, 2, 3, 4, 5, 6}, 3)
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, 12, a.Stride())
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, a.Vec3(1))

	a.SetVec3(0, mgl32.Vec3{7, 8, 9})
	assert.Equal(t, float32(8), a.Float32(0, 1))
}

func TestCubeGeometry(t *testing.T) {
	g := CreateCube(2)
	assert.Equal(t, 24, g.Attribute("position").Count())
	assert.Equal(t, 36, g.VertexCount())
	assert.Len(t, g.Groups, 6)
	assert.Equal(t, []string{"normal", "position", "uv"}, g.AttributeNames())

	s := g.BoundingSphere()
	assert.InDelta(t, math.Sqrt(3), s.Radius, 1e-5)
	assert.True(t, s.Center.ApproxEqual(mgl32.Vec3{}))
}

func TestBoundsResetOnPositionChange(t *testing.T) {
	g := CreatePlane(2, 2, 1)
	assert.InDelta(t, math.Sqrt2, g.BoundingSphere().Radius, 1e-5)

	g.SetAttribute("position", NewFloat32Attribute([]float32{0, 0, 0, 4, 0, 0}, 3))
	assert.InDelta(t, 2, g.BoundingSphere().Radius, 1e-5)
}

// Outward-facing triangles wind counter-clockwise, so the geometric normal
// of every triangle agrees with its vertex normals.
func TestPrimitiveWinding(t *testing.T) {
	for _, g := range []*Geometry{
		CreateCube(1),
		CreateSphere(1, 8, 6),
		CreateCylinder(0.5, 1, 2, 8),
		CreateCone(1, 2, 8),
		CreateTorus(1, 0.3, 8, 6),
		CreatePlane(1, 1, 2),
		CreateQuad(),
		CreatePyramid(1, 1),
	} {
		pos, nrm := g.Attribute("position"), g.Attribute("normal")
		for i := 0; i+2 < g.Index.Count(); i += 3 {
			a, b, c := int(g.Index.Index(i)), int(g.Index.Index(i+1)), int(g.Index.Index(i+2))
			face := pos.Vec3(b).Sub(pos.Vec3(a)).Cross(pos.Vec3(c).Sub(pos.Vec3(a)))
			if face.LenSqr() < 1e-12 {
				continue
			}
			avg := nrm.Vec3(a).Add(nrm.Vec3(b)).Add(nrm.Vec3(c))
			if !assert.Greater(t, face.Dot(avg), float32(0), "%s triangle %d", g.Name, i/3) {
				break
			}
		}
	}
}

func TestComputeTangents(t *testing.T) {
	g := CreatePlane(1, 1, 1)
	require.True(t, ComputeTangents(g))

	tan := g.Attribute("tangent")
	require.NotNil(t, tan)
	assert.Equal(t, 4, tan.ItemSize)
	for i := 0; i < tan.Count(); i++ {
		assert.InDelta(t, 1, tan.Float32(i, 0), 1e-5)
		assert.InDelta(t, 1, math.Abs(float64(tan.Float32(i, 3))), 1e-6)
	}

	assert.False(t, ComputeTangents(NewGeometry("empty")))
}

func TestInstancedBounds(t *testing.T) {
	n := NewInstancedMesh("inst", CreateCube(2), NewMaterial(BasicMaterial), 2)
	d := n.Drawable
	d.SetInstanceMatrix(1, mgl32.Translate3D(10, 0, 0))

	assert.Equal(t, []Range{{Offset: 64, Length: 64}}, d.InstanceMatrix.UpdateRanges())
	s := d.InstanceBoundingSphere()
	assert.InDelta(t, 5, s.Center.X(), 1e-5)
	assert.Greater(t, s.Radius, float32(5))
}

func TestParseOBJ(t *testing.T) {
	src := `
# quad
mtllib scene.mtl
o quad
v 0 0 0
v 1 0 0
v 1 0 1
v 0 0 1
vt 0 0
vt 1 1
usemtl red
f 1/1 4 -2 2
`
	mtl := func(name string) (map[string]*Material, error) {
		assert.Equal(t, "scene.mtl", name)
		return parseMTL(strings.NewReader("newmtl red\nKd 1 0 0\nd 0.5\n"), "")
	}
	nodes, err := ParseOBJ(strings.NewReader(src), mtl)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	d := nodes[0].Drawable
	assert.Equal(t, "quad", nodes[0].Name)
	assert.Equal(t, 4, d.Geometry.Attribute("position").Count())
	assert.Equal(t, 6, d.Geometry.VertexCount())

	// Winding 1-4-3-2 faces +Y; normals are generated when the file has none.
	assert.InDelta(t, 1, d.Geometry.Attribute("normal").Vec3(0).Y(), 1e-5)

	mat := d.Material()
	assert.Equal(t, PhongMaterial, mat.Kind)
	assert.Equal(t, float32(1), mat.Color.R)
	assert.True(t, mat.Transparent)
}

func TestParseOBJEmpty(t *testing.T) {
	_, err := ParseOBJ(strings.NewReader("# nothing\n"), nil)
	assert.Error(t, err)
}
