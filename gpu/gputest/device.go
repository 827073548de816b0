// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"strings"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// Call is one recorded device command.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

type shaderInfo struct {
	stage  gpu.ShaderStage
	source string
}

type programInfo struct {
	vs, fs gpu.Shader
	// Sources are copied at creation; the shaders may be deleted after link.
	vsSource string
	fsSource string
	uniforms map[string]int32
	attribs  map[string]int32
	nextLoc  int32
	linked   bool
}

// Device records every call it receives. Object handles are never reused
// unless RecycleNames is set, so handles created after a simulated context
// restore differ from earlier ones.
type Device struct {
	caps  gpu.Caps
	calls []Call
	next  uint32
	lost  bool
	free  []uint32

	buffers  map[gpu.Buffer][]byte
	bound    map[gpu.BufferTarget]gpu.Buffer
	shaders  map[gpu.Shader]shaderInfo
	programs map[gpu.Program]*programInfo
	fences   map[gpu.Fence]bool

	// CompileHook decides whether a shader compiles. The default accepts everything
	// except sources containing "#error".
	CompileHook func(stage gpu.ShaderStage, source string) (bool, string)
	// LinkHook decides whether a program links. The default accepts everything.
	LinkHook func(p gpu.Program) (bool, string)
	// ReadyHook answers ProgramReady. The default reports true.
	ReadyHook func(p gpu.Program) bool
	// Status is returned by CheckFramebufferStatus.
	Status gpu.FramebufferStatus
	// RecycleNames hands out the most recently deleted texture, framebuffer
	// or program name before minting a new one, the way GL drivers do.
	RecycleNames bool
}

// New returns a recording device with the given capabilities.
func New(caps gpu.Caps) *Device {
	return &Device{
		caps:     caps,
		buffers:  make(map[gpu.Buffer][]byte),
		bound:    make(map[gpu.BufferTarget]gpu.Buffer),
		shaders:  make(map[gpu.Shader]shaderInfo),
		programs: make(map[gpu.Program]*programInfo),
		fences:   make(map[gpu.Fence]bool),
	}
}

// NewDefault returns a recording device with gpu.DefaultCaps.
func NewDefault() *Device {
	return New(gpu.DefaultCaps())
}

func (d *Device) record(op string, args ...any) {
	d.calls = append(d.calls, Call{Op: op, Args: args})
}

func (d *Device) handle() uint32 {
	if n := len(d.free); n > 0 {
		h := d.free[n-1]
		d.free = d.free[:n-1]
		return h
	}
	d.next++
	return d.next
}

func (d *Device) recycle(h uint32) {
	if d.RecycleNames && h != 0 {
		d.free = append(d.free, h)
	}
}

// Calls returns the recorded calls, optionally filtered by op name.
func (d *Device) Calls(ops ...string) []Call {
	if len(ops) == 0 {
		return append([]Call(nil), d.calls...)
	}
	var out []Call
	for _, c := range d.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Count returns how many calls named op were recorded.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps object state.
func (d *Device) Reset() {
	d.calls = d.calls[:0]
}

// LoseContext simulates a lost GPU context. All objects become invalid.
func (d *Device) LoseContext() {
	d.lost = true
	d.buffers = make(map[gpu.Buffer][]byte)
	d.bound = make(map[gpu.BufferTarget]gpu.Buffer)
	d.shaders = make(map[gpu.Shader]shaderInfo)
	d.programs = make(map[gpu.Program]*programInfo)
	d.fences = make(map[gpu.Fence]bool)
}

// RestoreContext ends a simulated context loss.
func (d *Device) RestoreContext() {
	d.lost = false
}

// SignalFences marks every pending fence as signaled.
func (d *Device) SignalFences() {
	for f := range d.fences {
		d.fences[f] = true
	}
}

// BufferContent returns the bytes last uploaded to b.
func (d *Device) BufferContent(b gpu.Buffer) []byte {
	return d.buffers[b]
}

// SetBufferContent overwrites the device-side bytes of b, e.g. to fake a readback.
func (d *Device) SetBufferContent(b gpu.Buffer, data []byte) {
	d.buffers[b] = append([]byte(nil), data...)
}

// LiveProgram reports whether p exists on the device.
func (d *Device) LiveProgram(p gpu.Program) bool {
	_, ok := d.programs[p]
	return ok
}

func (d *Device) Caps() gpu.Caps      { return d.caps }
func (d *Device) IsContextLost() bool { return d.lost }

func (d *Device) CreateBuffer() gpu.Buffer {
	b := gpu.Buffer(d.handle())
	d.buffers[b] = nil
	d.record("CreateBuffer", b)
	return b
}

func (d *Device) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	d.bound[target] = b
	d.record("BindBuffer", target, b)
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	b := d.bound[target]
	d.buffers[b] = append([]byte(nil), data...)
	d.record("BufferData", target, len(data), usage)
}

func (d *Device) BufferSubData(target gpu.BufferTarget, offset int, data []byte) {
	b := d.bound[target]
	if buf := d.buffers[b]; offset+len(data) <= len(buf) {
		copy(buf[offset:], data)
	}
	d.record("BufferSubData", target, offset, len(data))
}

func (d *Device) GetBufferSubData(target gpu.BufferTarget, offset int, dst []byte) {
	b := d.bound[target]
	if buf := d.buffers[b]; offset < len(buf) {
		copy(dst, buf[offset:])
	}
	d.record("GetBufferSubData", target, offset, len(dst))
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	delete(d.buffers, b)
	d.record("DeleteBuffer", b)
}

func (d *Device) CreateTexture() gpu.Texture {
	t := gpu.Texture(d.handle())
	d.record("CreateTexture", t)
	return t
}

func (d *Device) ActiveTexture(unit int) { d.record("ActiveTexture", unit) }

func (d *Device) BindTexture(target gpu.TextureTarget, t gpu.Texture) {
	d.record("BindTexture", target, t)
}

func (d *Device) TexImage2D(target gpu.TextureTarget, level int, format gpu.TextureFormat, width, height int, pixels []byte) {
	d.record("TexImage2D", target, level, format, width, height, len(pixels))
}

func (d *Device) TexParameters(target gpu.TextureTarget, p gpu.SamplerParams) {
	d.record("TexParameters", target, p)
}

func (d *Device) GenerateMipmap(target gpu.TextureTarget) { d.record("GenerateMipmap", target) }
func (d *Device) DeleteTexture(t gpu.Texture) {
	d.recycle(uint32(t))
	d.record("DeleteTexture", t)
}

func (d *Device) CreateFramebuffer() gpu.Framebuffer {
	fb := gpu.Framebuffer(d.handle())
	d.record("CreateFramebuffer", fb)
	return fb
}

func (d *Device) BindFramebuffer(target gpu.FramebufferTarget, fb gpu.Framebuffer) {
	d.record("BindFramebuffer", target, fb)
}

func (d *Device) FramebufferTexture2D(attachment gpu.Attachment, target gpu.TextureTarget, t gpu.Texture, level int) {
	d.record("FramebufferTexture2D", attachment, target, t, level)
}

func (d *Device) CreateRenderbuffer() gpu.Renderbuffer {
	rb := gpu.Renderbuffer(d.handle())
	d.record("CreateRenderbuffer", rb)
	return rb
}

func (d *Device) RenderbufferStorage(rb gpu.Renderbuffer, format gpu.TextureFormat, width, height, samples int) {
	d.record("RenderbufferStorage", rb, format, width, height, samples)
}

func (d *Device) FramebufferRenderbuffer(attachment gpu.Attachment, rb gpu.Renderbuffer) {
	d.record("FramebufferRenderbuffer", attachment, rb)
}

func (d *Device) DrawBuffers(attachments []gpu.Attachment) {
	d.record("DrawBuffers", append([]gpu.Attachment(nil), attachments...))
}

func (d *Device) CheckFramebufferStatus() gpu.FramebufferStatus {
	d.record("CheckFramebufferStatus")
	return d.Status
}

func (d *Device) BlitFramebuffer(src, dst core.Rect, mask gpu.ClearMask, linear bool) {
	d.record("BlitFramebuffer", src, dst, mask, linear)
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	d.recycle(uint32(fb))
	d.record("DeleteFramebuffer", fb)
}

func (d *Device) DeleteRenderbuffer(rb gpu.Renderbuffer) { d.record("DeleteRenderbuffer", rb) }

func (d *Device) CreateShader(stage gpu.ShaderStage, source string) gpu.Shader {
	s := gpu.Shader(d.handle())
	d.shaders[s] = shaderInfo{stage: stage, source: source}
	d.record("CreateShader", stage, s)
	return s
}

func (d *Device) CompileShader(s gpu.Shader) (bool, string) {
	d.record("CompileShader", s)
	info := d.shaders[s]
	if d.CompileHook != nil {
		return d.CompileHook(info.stage, info.source)
	}
	if i := strings.Index(info.source, "#error"); i >= 0 {
		line := strings.Count(info.source[:i], "\n") + 1
		return false, fmt.Sprintf("ERROR: 0:%d: '#error' : forced failure", line)
	}
	return true, ""
}

func (d *Device) CreateProgram(vs, fs gpu.Shader) gpu.Program {
	p := gpu.Program(d.handle())
	d.programs[p] = &programInfo{
		vs:       vs,
		fs:       fs,
		vsSource: d.shaders[vs].source,
		fsSource: d.shaders[fs].source,
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
	}
	d.record("CreateProgram", p, vs, fs)
	return p
}

func (d *Device) LinkProgram(p gpu.Program) (bool, string) {
	d.record("LinkProgram", p)
	ok, log := true, ""
	if d.LinkHook != nil {
		ok, log = d.LinkHook(p)
	}
	if info := d.programs[p]; info != nil {
		info.linked = ok
	}
	return ok, log
}

func (d *Device) ProgramReady(p gpu.Program) bool {
	if d.ReadyHook != nil {
		return d.ReadyHook(p)
	}
	return true
}

func (d *Device) DeleteShader(s gpu.Shader) {
	delete(d.shaders, s)
	d.record("DeleteShader", s)
}

func (d *Device) DeleteProgram(p gpu.Program) {
	delete(d.programs, p)
	d.recycle(uint32(p))
	d.record("DeleteProgram", p)
}

func (d *Device) UseProgram(p gpu.Program) { d.record("UseProgram", p) }

// UniformLocation reports a location for any uniform whose base name appears in
// the program's shader sources, mimicking the driver dropping unused uniforms.
func (d *Device) UniformLocation(p gpu.Program, name string) int32 {
	info := d.programs[p]
	if info == nil {
		return -1
	}
	if loc, ok := info.uniforms[name]; ok {
		return loc
	}
	base := name
	if i := strings.IndexAny(base, "[."); i >= 0 {
		base = base[:i]
	}
	loc := int32(-1)
	if strings.Contains(info.vsSource, base) || strings.Contains(info.fsSource, base) {
		loc = info.nextLoc
		info.nextLoc++
	}
	info.uniforms[name] = loc
	return loc
}

func (d *Device) AttribLocation(p gpu.Program, name string) int32 {
	info := d.programs[p]
	if info == nil {
		return -1
	}
	if loc, ok := info.attribs[name]; ok {
		return loc
	}
	loc := int32(-1)
	if strings.Contains(info.vsSource, name) {
		loc = int32(len(info.attribs))
	}
	info.attribs[name] = loc
	return loc
}

func (d *Device) Uniform1i(loc int32, v int32)         { d.record("Uniform1i", loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)       { d.record("Uniform1f", loc, v) }
func (d *Device) Uniform2f(loc int32, x, y float32)    { d.record("Uniform2f", loc, x, y) }
func (d *Device) Uniform3f(loc int32, x, y, z float32) { d.record("Uniform3f", loc, x, y, z) }

func (d *Device) Uniform4f(loc int32, x, y, z, w float32) {
	d.record("Uniform4f", loc, x, y, z, w)
}

func (d *Device) Uniform1fv(loc int32, v []float32)       { d.record("Uniform1fv", loc, len(v)) }
func (d *Device) Uniform3fv(loc int32, v []float32)       { d.record("Uniform3fv", loc, len(v)) }
func (d *Device) Uniform4fv(loc int32, v []float32)       { d.record("Uniform4fv", loc, len(v)) }
func (d *Device) Uniform1iv(loc int32, v []int32)         { d.record("Uniform1iv", loc, len(v)) }
func (d *Device) UniformMatrix3fv(loc int32, v []float32) { d.record("UniformMatrix3fv", loc, len(v)) }
func (d *Device) UniformMatrix4fv(loc int32, v []float32) { d.record("UniformMatrix4fv", loc, len(v)) }

func (d *Device) Enable(c gpu.Capability)     { d.record("Enable", c) }
func (d *Device) Disable(c gpu.Capability)    { d.record("Disable", c) }
func (d *Device) DepthFunc(f gpu.CompareFunc) { d.record("DepthFunc", f) }
func (d *Device) DepthMask(write bool)        { d.record("DepthMask", write) }
func (d *Device) ColorMask(r, g, b, a bool)   { d.record("ColorMask", r, g, b, a) }

func (d *Device) StencilFunc(f gpu.CompareFunc, ref int32, mask uint32) {
	d.record("StencilFunc", f, ref, mask)
}

func (d *Device) StencilOp(fail, zfail, zpass gpu.StencilOp) {
	d.record("StencilOp", fail, zfail, zpass)
}

func (d *Device) StencilMask(mask uint32) { d.record("StencilMask", mask) }

func (d *Device) BlendEquationSeparate(rgb, alpha gpu.BlendEquation) {
	d.record("BlendEquationSeparate", rgb, alpha)
}

func (d *Device) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha gpu.BlendFactor) {
	d.record("BlendFuncSeparate", srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (d *Device) BlendColor(c core.Color)  { d.record("BlendColor", c) }
func (d *Device) CullFace(f gpu.Face)      { d.record("CullFace", f) }
func (d *Device) FrontFace(w gpu.Winding)  { d.record("FrontFace", w) }
func (d *Device) LineWidth(w float32)      { d.record("LineWidth", w) }
func (d *Device) Scissor(r core.Rect)      { d.record("Scissor", r) }
func (d *Device) Viewport(r core.Rect)     { d.record("Viewport", r) }
func (d *Device) ClearColor(c core.Color)  { d.record("ClearColor", c) }
func (d *Device) ClearDepth(v float64)     { d.record("ClearDepth", v) }
func (d *Device) ClearStencil(s int32)     { d.record("ClearStencil", s) }
func (d *Device) Clear(mask gpu.ClearMask) { d.record("Clear", mask) }

func (d *Device) PolygonOffset(factor, units float32) {
	d.record("PolygonOffset", factor, units)
}

func (d *Device) EnableVertexAttrib(loc uint32)  { d.record("EnableVertexAttrib", loc) }
func (d *Device) DisableVertexAttrib(loc uint32) { d.record("DisableVertexAttrib", loc) }

func (d *Device) VertexAttribPointer(loc uint32, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	d.record("VertexAttribPointer", loc, size, typ, normalized, stride, offset)
}

func (d *Device) VertexAttribDivisor(loc uint32, divisor int) {
	d.record("VertexAttribDivisor", loc, divisor)
}

func (d *Device) DrawArrays(mode gpu.DrawMode, first, count int) {
	d.record("DrawArrays", mode, first, count)
}

func (d *Device) DrawElements(mode gpu.DrawMode, count int, typ gpu.DataType, offset int) {
	d.record("DrawElements", mode, count, typ, offset)
}

func (d *Device) DrawArraysInstanced(mode gpu.DrawMode, first, count, instances int) {
	d.record("DrawArraysInstanced", mode, first, count, instances)
}

func (d *Device) DrawElementsInstanced(mode gpu.DrawMode, count int, typ gpu.DataType, offset, instances int) {
	d.record("DrawElementsInstanced", mode, count, typ, offset, instances)
}

func (d *Device) MultiDrawArrays(mode gpu.DrawMode, firsts, counts []int32) {
	d.record("MultiDrawArrays", mode, len(counts))
}

func (d *Device) MultiDrawElements(mode gpu.DrawMode, counts []int32, typ gpu.DataType, offsets []int) {
	d.record("MultiDrawElements", mode, len(counts), typ)
}

func (d *Device) ReadPixels(r core.Rect, format gpu.TextureFormat, into gpu.Buffer) {
	d.record("ReadPixels", r, format, into)
}

func (d *Device) FenceSync() gpu.Fence {
	f := gpu.Fence(d.handle())
	d.fences[f] = false
	d.record("FenceSync", f)
	return f
}

func (d *Device) FenceSignaled(f gpu.Fence) bool {
	return d.fences[f]
}

func (d *Device) DeleteFence(f gpu.Fence) {
	delete(d.fences, f)
	d.record("DeleteFence", f)
}

var _ gpu.Device = (*Device)(nil)
