package renderer

import (
	"go.uber.org/zap"

	"frame-renderer/gpu"
	"frame-renderer/programs"
	"frame-renderer/scene"
)

// attribState tracks enabled vertex attribute locations and their divisors so
// locations left over from the previous draw can be disabled.
type attribState struct {
	enabled  []bool
	used     []bool
	divisors []int
}

func (a *attribState) reset(max int) {
	a.enabled = make([]bool, max)
	a.used = make([]bool, max)
	a.divisors = make([]int, max)
}

func (r *Renderer) enableAttrib(loc uint32, divisor int) {
	a := &r.attribs
	if int(loc) >= len(a.enabled) {
		r.warnOnce("attribs", "vertex attribute location out of range", zap.Uint32("location", loc))
		return
	}
	a.used[loc] = true
	if !a.enabled[loc] {
		r.device.EnableVertexAttrib(loc)
		a.enabled[loc] = true
	}
	if a.divisors[loc] != divisor {
		r.device.VertexAttribDivisor(loc, divisor)
		a.divisors[loc] = divisor
	}
}

func (r *Renderer) disableUnusedAttribs() {
	a := &r.attribs
	for loc, on := range a.enabled {
		if on && !a.used[loc] {
			r.device.DisableVertexAttrib(uint32(loc))
			a.enabled[loc] = false
		}
		a.used[loc] = false
	}
}

// bindAttribute points the program input name at attr. Matrix attributes span
// four consecutive locations.
func (r *Renderer) bindAttribute(prog *programs.Program, name string, attr *scene.BufferAttribute) {
	if attr == nil {
		return
	}
	loc := prog.AttribLocation(name)
	if loc < 0 {
		return
	}
	rec, ok := r.resources.Attributes.Get(attr)
	if !ok {
		return
	}
	r.device.BindBuffer(gpu.ArrayBuffer, rec.Buffer)
	if attr.ItemSize == 16 {
		stride := attr.Stride()
		for col := range 4 {
			l := uint32(loc) + uint32(col)
			r.enableAttrib(l, attr.Divisor)
			r.device.VertexAttribPointer(l, 4, attr.Type, attr.Normalized, stride, col*4*attr.Type.Size())
		}
		return
	}
	r.enableAttrib(uint32(loc), attr.Divisor)
	r.device.VertexAttribPointer(uint32(loc), attr.ItemSize, attr.Type, attr.Normalized, 0, 0)
}

// setupVertexAttributes uploads the geometry and per-instance streams and
// binds every stream the program reads.
func (r *Renderer) setupVertexAttributes(prog *programs.Program, obj *scene.Node, geo *scene.Geometry) error {
	if err := r.resources.Geometries.Update(geo); err != nil {
		return err
	}
	for _, name := range geo.AttributeNames() {
		r.bindAttribute(prog, name, geo.Attribute(name))
	}
	for i, attr := range geo.MorphAttributes["position"] {
		if i >= maxMorphAttributes {
			break
		}
		r.bindAttribute(prog, morphTargetNames[i], attr)
	}
	for i, attr := range geo.MorphAttributes["normal"] {
		if i >= maxMorphAttributes {
			break
		}
		r.bindAttribute(prog, morphNormalNames[i], attr)
	}

	if d := obj.Drawable; d != nil && d.InstanceCount > 0 {
		if err := r.updateInstanceStreams(d); err != nil {
			return err
		}
		r.bindAttribute(prog, "instanceMatrix", d.InstanceMatrix)
		r.bindAttribute(prog, "instanceColor", d.InstanceColor)
	}
	r.disableUnusedAttribs()
	return nil
}

// instanceStreams are the per-instance attributes a drawable holds a
// reference on.
type instanceStreams struct {
	matrix *scene.BufferAttribute
	color  *scene.BufferAttribute
}

// updateInstanceStreams uploads the instance attributes of d and keeps one
// reference per stream until d is disposed or the stream is replaced.
func (r *Renderer) updateInstanceStreams(d *scene.Drawable) error {
	held := r.instances[d]
	if held == nil {
		held = &instanceStreams{}
		r.instances[d] = held
		d.OnDispose(r, func() { r.releaseInstances(d) })
	}
	for _, s := range [...]struct {
		held **scene.BufferAttribute
		attr *scene.BufferAttribute
	}{
		{&held.matrix, d.InstanceMatrix},
		{&held.color, d.InstanceColor},
	} {
		if s.attr != nil {
			if err := r.resources.Attributes.Update(s.attr, gpu.ArrayBuffer); err != nil {
				return err
			}
		}
		if *s.held == s.attr {
			continue
		}
		if *s.held != nil {
			r.resources.Attributes.Release(*s.held)
		}
		if s.attr != nil {
			r.resources.Attributes.Acquire(s.attr)
		}
		*s.held = s.attr
	}
	return nil
}

func (r *Renderer) releaseInstances(d *scene.Drawable) {
	held := r.instances[d]
	if held == nil {
		return
	}
	if held.matrix != nil {
		r.resources.Attributes.Release(held.matrix)
	}
	if held.color != nil {
		r.resources.Attributes.Release(held.color)
	}
	delete(r.instances, d)
}

// drawItem draws one render-list entry. Only resource errors and fatal shader
// errors are returned; everything else is logged and skipped.
func (r *Renderer) drawItem(obj *scene.Node, geo *scene.Geometry, m *scene.Material, group *scene.Group) error {
	if geo == nil || m == nil || !m.Visible {
		return nil
	}
	prog, err := r.programFor(m, obj)
	if err != nil {
		return err
	}
	if prog == nil || !prog.Ready() {
		return nil
	}

	r.state.UseProgram(prog.Handle)
	r.state.ResetTextureUnits()
	u := prog.Uniforms()
	r.setCameraUniforms(u)
	if m.Kind.Lit() {
		r.setLightUniforms(u)
	}
	r.setFogUniforms(u, m)
	r.setClippingUniforms(u, m)
	r.setMaterialUniforms(u, m)
	r.setObjectUniforms(u, obj)

	if err := r.setupVertexAttributes(prog, obj, geo); err != nil {
		return err
	}
	r.state.SetMaterial(m, obj.WorldMatrix().Det() < 0)
	if m.LineWidth > 0 && obj.Drawable != nil && obj.Drawable.Kind != scene.KindMesh && obj.Drawable.Kind != scene.KindPoints {
		r.state.SetLineWidth(m.LineWidth)
	}
	return r.drawGeometry(obj, geo, m, group)
}

// drawGeometry issues the draw call(s) for the intersection of the draw range,
// the group and the stream length.
func (r *Renderer) drawGeometry(obj *scene.Node, geo *scene.Geometry, m *scene.Material, group *scene.Group) error {
	d := obj.Drawable
	kind := scene.KindMesh
	if d != nil {
		kind = d.Kind
	}
	mode := kind.Mode(m.Wireframe)

	index := geo.Index
	factor := 1
	if m.Wireframe && kind == scene.KindMesh {
		wf, err := r.wireframeIndex(geo)
		if err != nil {
			return err
		}
		index, factor = wf, 2
	}

	total := geo.VertexCount()
	if index != nil {
		total = index.Count()
		rec, ok := r.resources.Attributes.Get(index)
		if !ok {
			return nil
		}
		r.device.BindBuffer(gpu.ElementArrayBuffer, rec.Buffer)
	}

	first, last := geo.DrawRange.Start*factor, total
	if geo.DrawRange.Count >= 0 {
		last = min(last, (geo.DrawRange.Start+geo.DrawRange.Count)*factor)
	}
	if group != nil {
		first = max(first, group.Start*factor)
		last = min(last, (group.Start+group.Count)*factor)
	}
	count := last - first
	if count <= 0 {
		return nil
	}

	caps := r.device.Caps()
	switch {
	case d != nil && d.InstanceCount > 0:
		if !caps.Instancing {
			r.warnOnce("instancing", "device lacks instancing, instanced drawable skipped", zap.String("node", obj.Name))
			return nil
		}
		if index != nil {
			r.device.DrawElementsInstanced(mode, count, index.Type, first*index.Type.Size(), d.InstanceCount)
		} else {
			r.device.DrawArraysInstanced(mode, first, count, d.InstanceCount)
		}
		r.count(mode, count, d.InstanceCount)

	case len(geo.MultiDraw) > 0 && group == nil:
		r.multiDraw(geo, mode, index, factor, caps.MultiDraw)

	default:
		if index != nil {
			r.device.DrawElements(mode, count, index.Type, first*index.Type.Size())
		} else {
			r.device.DrawArrays(mode, first, count)
		}
		r.count(mode, count, 1)
	}
	return nil
}

// multiDraw submits every multi-draw range, in one call when the device can.
func (r *Renderer) multiDraw(geo *scene.Geometry, mode gpu.DrawMode, index *scene.BufferAttribute, factor int, native bool) {
	counts := make([]int32, 0, len(geo.MultiDraw))
	starts := make([]int, 0, len(geo.MultiDraw))
	for _, dr := range geo.MultiDraw {
		if dr.Count <= 0 {
			continue
		}
		counts = append(counts, int32(dr.Count*factor))
		starts = append(starts, dr.Start*factor)
	}
	if len(counts) == 0 {
		return
	}

	if !native {
		for i, c := range counts {
			if index != nil {
				r.device.DrawElements(mode, int(c), index.Type, starts[i]*index.Type.Size())
			} else {
				r.device.DrawArrays(mode, starts[i], int(c))
			}
			r.count(mode, int(c), 1)
		}
		return
	}

	if index != nil {
		offsets := make([]int, len(starts))
		for i, s := range starts {
			offsets[i] = s * index.Type.Size()
		}
		r.device.MultiDrawElements(mode, counts, index.Type, offsets)
	} else {
		firsts := make([]int32, len(starts))
		for i, s := range starts {
			firsts[i] = int32(s)
		}
		r.device.MultiDrawArrays(mode, firsts, counts)
	}
	r.info.Calls++
	for _, c := range counts {
		r.countPrimitives(mode, int(c), 1)
	}
}

// count records one draw call.
func (r *Renderer) count(mode gpu.DrawMode, count, instances int) {
	r.info.Calls++
	r.countPrimitives(mode, count, instances)
}

func (r *Renderer) countPrimitives(mode gpu.DrawMode, count, instances int) {
	switch mode {
	case gpu.Triangles:
		r.info.Triangles += instances * (count / 3)
	case gpu.TriangleStrip:
		r.info.Triangles += instances * max(count-2, 0)
	case gpu.Lines:
		r.info.Lines += instances * (count / 2)
	case gpu.LineStrip:
		r.info.Lines += instances * max(count-1, 0)
	case gpu.LineLoop:
		r.info.Lines += instances * count
	case gpu.Points:
		r.info.Points += instances * count
	}
}

// wireframe is the generated edge index of a triangle geometry.
type wireframe struct {
	index   *scene.BufferAttribute
	source  *scene.BufferAttribute
	version uint64
	count   int
}

// wireframeIndex returns (and uploads) the line index listing the three edges
// of every triangle of geo.
func (r *Renderer) wireframeIndex(geo *scene.Geometry) (*scene.BufferAttribute, error) {
	wf := r.wireframes[geo.ID]
	var version uint64
	if geo.Index != nil {
		version = geo.Index.Version()
	}
	count := geo.VertexCount()
	if wf == nil || wf.source != geo.Index || wf.version != version || wf.count != count {
		if wf != nil {
			r.resources.Attributes.Remove(wf.index)
		} else {
			geo.OnDispose(r, func() { r.disposeWireframe(geo.ID) })
		}
		wf = &wireframe{
			index:   scene.NewIndexAttribute(wireframeEdges(geo)),
			source:  geo.Index,
			version: version,
			count:   count,
		}
		r.wireframes[geo.ID] = wf
	}
	if err := r.resources.Attributes.Update(wf.index, gpu.ElementArrayBuffer); err != nil {
		return nil, err
	}
	return wf.index, nil
}

func wireframeEdges(geo *scene.Geometry) []uint32 {
	n := geo.VertexCount()
	vertex := func(i int) uint32 { return uint32(i) }
	if geo.Index != nil {
		vertex = geo.Index.Index
	}
	edges := make([]uint32, 0, 2*n)
	for i := 0; i+2 < n; i += 3 {
		a, b, c := vertex(i), vertex(i+1), vertex(i+2)
		edges = append(edges, a, b, b, c, c, a)
	}
	return edges
}

func (r *Renderer) disposeWireframe(id uint64) {
	if wf := r.wireframes[id]; wf != nil {
		r.resources.Attributes.Remove(wf.index)
		delete(r.wireframes, id)
	}
}
