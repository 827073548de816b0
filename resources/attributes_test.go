package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/gpu/gputest"
	"frame-renderer/scene"
)

func newCache(t *testing.T) (*Cache, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDefault()
	return New(dev, nil), dev
}

func TestSecondUpdateUploadsNothing(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewFloat32Attribute([]float32{1, 2, 3, 4, 5, 6}, 3)

	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))
	assert.Equal(t, 1, dev.Count("BufferData"))

	dev.Reset()
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))
	assert.Empty(t, dev.Calls("BufferData", "BufferSubData", "BindBuffer"))
}

func TestPartialUploadOfDirtyRange(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewBufferAttribute(make([]byte, 10000), 4, gpu.UnsignedByte)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	dev.Reset()
	edit := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	attr.Write(4000, edit)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	calls := dev.Calls("BufferSubData", "BufferData")
	require.Len(t, calls, 1)
	assert.Equal(t, "BufferSubData", calls[0].Op)
	assert.Equal(t, []any{gpu.ArrayBuffer, 4000, 10}, calls[0].Args)
	assert.Empty(t, attr.UpdateRanges())

	rec, ok := c.Attributes.Get(attr)
	require.True(t, ok)
	assert.Equal(t, edit, dev.BufferContent(rec.Buffer)[4000:4010])
}

func TestVersionBumpWithoutRangesUploadsWholeBuffer(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewFloat32Attribute(make([]float32, 8), 4)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	dev.Reset()
	attr.NeedsUpdate()
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	calls := dev.Calls("BufferSubData")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{gpu.ArrayBuffer, 0, 32}, calls[0].Args)
}

func TestOverlappingRangesMerge(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewBufferAttribute(make([]byte, 100), 1, gpu.UnsignedByte)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	dev.Reset()
	attr.AddUpdateRange(50, 10)
	attr.AddUpdateRange(10, 10)
	attr.AddUpdateRange(15, 10) // overlaps [10,20)
	attr.AddUpdateRange(25, 5)  // touches [10,25)
	attr.NeedsUpdate()
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	calls := dev.Calls("BufferSubData")
	require.Len(t, calls, 2)
	assert.Equal(t, []any{gpu.ArrayBuffer, 10, 20}, calls[0].Args)
	assert.Equal(t, []any{gpu.ArrayBuffer, 50, 10}, calls[1].Args)
}

func TestMergeRanges(t *testing.T) {
	got := MergeRanges([]scene.Range{
		{Offset: 90, Length: 20},
		{Offset: 0, Length: 0},
		{Offset: 5, Length: 5},
		{Offset: 0, Length: 6},
	}, 100)
	assert.Equal(t, []scene.Range{{Offset: 0, Length: 10}, {Offset: 90, Length: 10}}, got)
	assert.Nil(t, MergeRanges(nil, 10))
}

func TestSizeMismatch(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewFloat32Attribute(make([]float32, 3), 3)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))

	dev.Reset()
	attr.SetData(make([]byte, 24))
	err := c.Attributes.Update(attr, gpu.ArrayBuffer)

	require.ErrorIs(t, err, core.ErrResourceSizeMismatch)
	var mismatch *core.ResourceSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 12, mismatch.Allocated)
	assert.Equal(t, 24, mismatch.Requested)
	assert.Empty(t, dev.Calls("BufferData", "BufferSubData"))
}

func TestReleaseFreesAtZero(t *testing.T) {
	c, dev := newCache(t)
	attr := scene.NewFloat32Attribute(make([]float32, 3), 3)
	require.NoError(t, c.Attributes.Update(attr, gpu.ArrayBuffer))
	c.Attributes.Acquire(attr)
	c.Attributes.Acquire(attr)

	c.Attributes.Release(attr)
	assert.Zero(t, dev.Count("DeleteBuffer"))
	c.Attributes.Release(attr)
	assert.Equal(t, 1, dev.Count("DeleteBuffer"))

	_, ok := c.Attributes.Get(attr)
	assert.False(t, ok)
	assert.Zero(t, c.Info().Buffers)
}

func TestSharedAttributeSurvivesOneGeometryDispose(t *testing.T) {
	c, dev := newCache(t)
	shared := scene.NewFloat32Attribute(make([]float32, 9), 3)
	a, b := scene.NewGeometry("a"), scene.NewGeometry("b")
	a.SetAttribute("position", shared)
	b.SetAttribute("position", shared)
	a.SetIndex([]uint32{0, 1, 2})

	require.NoError(t, c.Geometries.Update(a))
	require.NoError(t, c.Geometries.Update(b))
	assert.Equal(t, 2, c.Info().Geometries)
	assert.Equal(t, 2, c.Info().Buffers)

	a.Dispose()
	assert.Equal(t, 1, dev.Count("DeleteBuffer")) // a's index buffer only
	assert.False(t, c.Geometries.Live(a))

	b.Dispose()
	assert.Equal(t, 2, dev.Count("DeleteBuffer"))
	assert.Equal(t, Info{}, c.Info())
}

func TestGeometryUploadsIndexAsElementBuffer(t *testing.T) {
	c, dev := newCache(t)
	g := scene.CreatePlane(1, 1, 1)
	require.NoError(t, c.Geometries.Update(g))

	rec, ok := c.Attributes.Get(g.Index)
	require.True(t, ok)
	assert.Equal(t, gpu.ElementArrayBuffer, rec.Target)
	assert.Equal(t, gpu.UnsignedShort, rec.Type)
	assert.Equal(t, 4, dev.Count("BufferData"))

	dev.Reset()
	require.NoError(t, c.Geometries.Update(g))
	assert.Zero(t, dev.Count("BufferData"))
}

func TestResetForgetsWithoutDeleting(t *testing.T) {
	c, dev := newCache(t)
	g := scene.CreateCube(1)
	require.NoError(t, c.Geometries.Update(g))

	dev.Reset()
	c.Reset()
	assert.Equal(t, Info{}, c.Info())
	assert.Zero(t, dev.Count("DeleteBuffer"))

	require.NoError(t, c.Geometries.Update(g))
	assert.Equal(t, 4, dev.Count("CreateBuffer"))
}

func TestReplacedAttributeIsReleased(t *testing.T) {
	c, dev := newCache(t)
	geo := scene.NewGeometry("tri")
	old := scene.NewFloat32Attribute(make([]float32, 9), 3)
	geo.SetAttribute("position", old)
	require.NoError(t, c.Geometries.Update(geo))
	oldRec, ok := c.Attributes.Get(old)
	require.True(t, ok)

	next := scene.NewFloat32Attribute(make([]float32, 9), 3)
	geo.SetAttribute("position", next)
	require.NoError(t, c.Geometries.Update(geo))

	deletes := dev.Calls("DeleteBuffer")
	require.Len(t, deletes, 1)
	assert.Equal(t, oldRec.Buffer, deletes[0].Args[0])
	_, ok = c.Attributes.Get(old)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Info().Buffers)

	geo.Dispose()
	assert.Equal(t, 2, dev.Count("DeleteBuffer"))
	assert.Equal(t, Info{}, c.Info())
}

func TestReplacedSharedAttributeSurvives(t *testing.T) {
	c, dev := newCache(t)
	shared := scene.NewFloat32Attribute(make([]float32, 9), 3)
	a, b := scene.NewGeometry("a"), scene.NewGeometry("b")
	a.SetAttribute("position", shared)
	b.SetAttribute("position", shared)
	require.NoError(t, c.Geometries.Update(a))
	require.NoError(t, c.Geometries.Update(b))

	a.SetAttribute("position", scene.NewFloat32Attribute(make([]float32, 9), 3))
	require.NoError(t, c.Geometries.Update(a))
	assert.Zero(t, dev.Count("DeleteBuffer"))
	rec, ok := c.Attributes.Get(shared)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Refs())
}
