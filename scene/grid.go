package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
)

// lineBuilder collects colored line segments.
type lineBuilder struct {
	positions []float32
	colors    []float32
}

func (b *lineBuilder) line(a, c mgl32.Vec3, col core.Color) {
	b.positions = append(b.positions, a[0], a[1], a[2], c[0], c[1], c[2])
	b.colors = append(b.colors, col.R, col.G, col.B, col.R, col.G, col.B)
}

func (b *lineBuilder) node(name string, mat *Material) *Node {
	geo := NewGeometry(name)
	geo.SetAttribute("position", NewFloat32Attribute(b.positions, 3))
	geo.SetAttribute("color", NewFloat32Attribute(b.colors, 3))
	return NewLines(name, KindLineSegments, geo, mat)
}

// NewGridHelper builds a flat XZ grid of line segments spanning -size/2 to
// +size/2. The X axis line is red, the Z axis line blue, the rest gray.
func NewGridHelper(size float32, divisions int) *Node {
	divisions = max(divisions, 1)
	half := size / 2
	step := size / float32(divisions)

	gray := core.Color{R: 0.35, G: 0.35, B: 0.35, A: 1}
	red := core.Color{R: 0.8, G: 0.15, B: 0.15, A: 1}
	blue := core.Color{R: 0.15, G: 0.35, B: 0.9, A: 1}

	var b lineBuilder
	for i := 0; i <= divisions; i++ {
		d := -half + float32(i)*step
		cz, cx := gray, gray
		if i == divisions/2 {
			cz, cx = blue, red
		}
		b.line(mgl32.Vec3{d, 0, -half}, mgl32.Vec3{d, 0, half}, cz)
		b.line(mgl32.Vec3{-half, 0, d}, mgl32.Vec3{half, 0, d}, cx)
	}

	mat := NewMaterial(LineMaterial)
	mat.Name = "GridMaterial"
	mat.VertexColors = true
	return b.node("Grid", mat)
}

// NewBoxHelper builds a wireframe of a unit cube (corners at ±1). Scale and
// translate the node to match the box being visualized.
func NewBoxHelper(color core.Color) *Node {
	c := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}.Corners()
	edges := [12][2]int{
		{0, 1}, {1, 3}, {3, 2}, {2, 0},
		{4, 5}, {5, 7}, {7, 6}, {6, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	var b lineBuilder
	for _, e := range edges {
		b.line(c[e[0]], c[e[1]], color)
	}

	mat := NewMaterial(LineMaterial)
	mat.Name = "BoxHelperMaterial"
	mat.VertexColors = true
	return b.node("BoxHelper", mat)
}
