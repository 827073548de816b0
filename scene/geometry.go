package scene

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// Range is a dirty byte span of an attribute.
type Range struct {
	Offset, Length int
}

// BufferAttribute is one vertex or index stream stored as little-endian bytes.
type BufferAttribute struct {
	ID         uint64
	ItemSize   int
	Type       gpu.DataType
	Normalized bool
	Usage      gpu.Usage
	// Divisor > 0 advances the attribute per instance instead of per vertex.
	Divisor int

	data         []byte
	version      uint64
	updateRanges []Range
}

// NewBufferAttribute wraps raw bytes. The slice is owned by the attribute afterwards.
func NewBufferAttribute(data []byte, itemSize int, typ gpu.DataType) *BufferAttribute {
	return &BufferAttribute{
		ID:       core.NextID(),
		ItemSize: itemSize,
		Type:     typ,
		Usage:    gpu.StaticDraw,
		data:     data,
	}
}

func NewFloat32Attribute(values []float32, itemSize int) *BufferAttribute {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return NewBufferAttribute(data, itemSize, gpu.Float)
}

func NewUint16Attribute(values []uint16, itemSize int) *BufferAttribute {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	return NewBufferAttribute(data, itemSize, gpu.UnsignedShort)
}

func NewUint32Attribute(values []uint32, itemSize int) *BufferAttribute {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return NewBufferAttribute(data, itemSize, gpu.UnsignedInt)
}

// NewIndexAttribute picks 16-bit indices when every value fits.
func NewIndexAttribute(indices []uint32) *BufferAttribute {
	for _, i := range indices {
		if i > math.MaxUint16 {
			return NewUint32Attribute(indices, 1)
		}
	}
	small := make([]uint16, len(indices))
	for i, v := range indices {
		small[i] = uint16(v)
	}
	return NewUint16Attribute(small, 1)
}

func (a *BufferAttribute) Bytes() []byte   { return a.data }
func (a *BufferAttribute) ByteLength() int { return len(a.data) }
func (a *BufferAttribute) Version() uint64 { return a.version }

// Stride is the byte size of one item.
func (a *BufferAttribute) Stride() int {
	return a.ItemSize * a.Type.Size()
}

// Count is the number of items.
func (a *BufferAttribute) Count() int {
	if s := a.Stride(); s > 0 {
		return len(a.data) / s
	}
	return 0
}

// NeedsUpdate marks the whole attribute for re-upload.
func (a *BufferAttribute) NeedsUpdate() {
	a.version++
}

// AddUpdateRange restricts the next upload to the given byte spans. Ranges
// accumulate until the next upload.
func (a *BufferAttribute) AddUpdateRange(offset, length int) {
	a.updateRanges = append(a.updateRanges, Range{Offset: offset, Length: length})
}

func (a *BufferAttribute) UpdateRanges() []Range { return a.updateRanges }
func (a *BufferAttribute) ClearUpdateRanges()    { a.updateRanges = a.updateRanges[:0] }

// Write copies b into the attribute at byte offset, records the span as dirty
// and bumps the version.
func (a *BufferAttribute) Write(offset int, b []byte) {
	n := copy(a.data[offset:], b)
	a.AddUpdateRange(offset, n)
	a.NeedsUpdate()
}

// SetData replaces the attribute content. A different byte length makes the
// next upload fail; the attribute must then be disposed and recreated.
func (a *BufferAttribute) SetData(data []byte) {
	a.data = data
	a.updateRanges = a.updateRanges[:0]
	a.NeedsUpdate()
}

// Float32 reads component c of item i.
func (a *BufferAttribute) Float32(i, c int) float32 {
	off := i*a.Stride() + c*4
	return math.Float32frombits(binary.LittleEndian.Uint32(a.data[off:]))
}

// SetFloat32 writes component c of item i without marking anything dirty.
func (a *BufferAttribute) SetFloat32(i, c int, v float32) {
	off := i*a.Stride() + c*4
	binary.LittleEndian.PutUint32(a.data[off:], math.Float32bits(v))
}

func (a *BufferAttribute) Vec3(i int) mgl32.Vec3 {
	return mgl32.Vec3{a.Float32(i, 0), a.Float32(i, 1), a.Float32(i, 2)}
}

func (a *BufferAttribute) SetVec3(i int, v mgl32.Vec3) {
	a.SetFloat32(i, 0, v[0])
	a.SetFloat32(i, 1, v[1])
	a.SetFloat32(i, 2, v[2])
}

// Index reads item i of an integer attribute.
func (a *BufferAttribute) Index(i int) uint32 {
	switch a.Type {
	case gpu.UnsignedShort:
		return uint32(binary.LittleEndian.Uint16(a.data[2*i:]))
	case gpu.UnsignedByte:
		return uint32(a.data[i])
	}
	return binary.LittleEndian.Uint32(a.data[4*i:])
}

// Group draws a sub-range of the index (or vertex) stream with one of the
// drawable's materials.
type Group struct {
	Start, Count  int
	MaterialIndex int
}

// DrawRange limits drawing to a window of the stream. Count < 0 means "to the end".
type DrawRange struct {
	Start, Count int
}

// Geometry holds named attribute streams and an optional index. It is owned by
// the application and referenced, not owned, by drawables.
type Geometry struct {
	Disposable

	ID    uint64
	Name  string
	Index *BufferAttribute

	Groups    []Group
	DrawRange DrawRange
	// MultiDraw, when set, draws each range with a single multi-draw call.
	MultiDraw []DrawRange

	MorphAttributes      map[string][]*BufferAttribute
	MorphTargetsRelative bool

	attributes     map[string]*BufferAttribute
	boundingBox    *AABB
	boundingSphere *Sphere
}

func NewGeometry(name string) *Geometry {
	return &Geometry{
		ID:              core.NextID(),
		Name:            name,
		DrawRange:       DrawRange{Start: 0, Count: -1},
		MorphAttributes: make(map[string][]*BufferAttribute),
		attributes:      make(map[string]*BufferAttribute),
	}
}

func (g *Geometry) SetAttribute(name string, a *BufferAttribute) {
	g.attributes[name] = a
	if name == "position" {
		g.boundingBox = nil
		g.boundingSphere = nil
	}
}

func (g *Geometry) Attribute(name string) *BufferAttribute {
	return g.attributes[name]
}

func (g *Geometry) DeleteAttribute(name string) {
	delete(g.attributes, name)
}

// AttributeNames returns the attribute names in sorted order.
func (g *Geometry) AttributeNames() []string {
	names := make([]string, 0, len(g.attributes))
	for n := range g.attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *Geometry) SetIndex(indices []uint32) {
	g.Index = NewIndexAttribute(indices)
}

func (g *Geometry) AddGroup(start, count, materialIndex int) {
	g.Groups = append(g.Groups, Group{Start: start, Count: count, MaterialIndex: materialIndex})
}

// VertexCount is the number of elements a full draw covers: indices when
// indexed, positions otherwise.
func (g *Geometry) VertexCount() int {
	if g.Index != nil {
		return g.Index.Count()
	}
	if p := g.attributes["position"]; p != nil {
		return p.Count()
	}
	return 0
}

func (g *Geometry) ComputeBoundingBox() AABB {
	box := EmptyAABB()
	if pos := g.attributes["position"]; pos != nil {
		for i := 0; i < pos.Count(); i++ {
			box = box.ExpandByPoint(pos.Vec3(i))
		}
	}
	g.boundingBox = &box
	return box
}

// ComputeBoundingSphere centers the sphere on the bounding box and takes the
// farthest vertex as radius.
func (g *Geometry) ComputeBoundingSphere() Sphere {
	pos := g.attributes["position"]
	if pos == nil || pos.Count() == 0 {
		s := Sphere{Radius: -1}
		g.boundingSphere = &s
		return s
	}
	center := g.BoundingBox().Center()
	var r2 float32
	for i := 0; i < pos.Count(); i++ {
		r2 = max(r2, pos.Vec3(i).Sub(center).LenSqr())
	}
	s := Sphere{Center: center, Radius: float32(math.Sqrt(float64(r2)))}
	g.boundingSphere = &s
	return s
}

// BoundingBox returns the cached box, computing it on first use.
func (g *Geometry) BoundingBox() AABB {
	if g.boundingBox == nil {
		return g.ComputeBoundingBox()
	}
	return *g.boundingBox
}

// BoundingSphere returns the cached sphere, computing it on first use.
func (g *Geometry) BoundingSphere() Sphere {
	if g.boundingSphere == nil {
		return g.ComputeBoundingSphere()
	}
	return *g.boundingSphere
}

// Dispose notifies GPU caches that the geometry's buffers can be freed.
func (g *Geometry) Dispose() {
	g.dispatchDispose()
}
