// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
//
// Every method must be called on the thread that owns the context. The device
// binds a single vertex array object at creation; attribute state is set
// through it for every draw.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

type Device struct {
	log  *zap.Logger
	caps gpu.Caps
	vao  uint32

	maxAnisotropy float32
	fences        map[gpu.Fence]uintptr
	nextFence     gpu.Fence
}

// New loads the GL entry points. The GLFW window context must be current.
func New(log *zap.Logger) (*Device, error) {
	if log == nil {
		log = core.Logger()
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	d := &Device{
		log:    log.Named("opengl"),
		fences: make(map[gpu.Fence]uintptr),
	}
	d.caps = d.queryCaps()

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	d.log.Info("context ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("max_texture_units", d.caps.MaxTextureUnits),
		zap.Int("max_samples", d.caps.MaxSamples),
		zap.Bool("parallel_compile", d.caps.ParallelCompile),
	)
	return d, nil
}

func (d *Device) queryCaps() gpu.Caps {
	caps := gpu.DefaultCaps()
	geti := func(name uint32) int {
		var v int32
		gl.GetIntegerv(name, &v)
		return int(v)
	}
	caps.MaxTextureUnits = geti(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS)
	caps.MaxVertexAttribs = geti(gl.MAX_VERTEX_ATTRIBS)
	caps.MaxTextureSize = geti(gl.MAX_TEXTURE_SIZE)
	caps.MaxSamples = geti(gl.MAX_SAMPLES)
	caps.MaxVertexUniforms = geti(gl.MAX_VERTEX_UNIFORM_VECTORS)
	caps.VertexTextures = geti(gl.MAX_VERTEX_TEXTURE_IMAGE_UNITS) > 0

	n := geti(gl.NUM_EXTENSIONS)
	for i := 0; i < n; i++ {
		switch gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))) {
		case extParallelCompileKHR, extParallelCompileARB:
			caps.ParallelCompile = true
		case extAnisotropicFiltering, extAnisotropicFilteringGL:
			gl.GetFloatv(maxTextureMaxAnisotropy, &d.maxAnisotropy)
		}
	}
	return caps
}

func (d *Device) Caps() gpu.Caps { return d.caps }

// IsContextLost is always false: a desktop context survives until the window
// is destroyed.
func (d *Device) IsContextLost() bool { return false }

// Close releases the vertex array and any pending fences.
func (d *Device) Close() {
	for f, sync := range d.fences {
		gl.DeleteSync(sync)
		delete(d.fences, f)
	}
	gl.DeleteVertexArrays(1, &d.vao)
}

// ── Buffers ───────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Buffer(b)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	gl.BindBuffer(bufferTarget(target), uint32(b))
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, u gpu.Usage) {
	gl.BufferData(bufferTarget(target), len(data), bytePtr(data), usage(u))
}

func (d *Device) BufferSubData(target gpu.BufferTarget, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(bufferTarget(target), offset, len(data), gl.Ptr(data))
}

func (d *Device) GetBufferSubData(target gpu.BufferTarget, offset int, dst []byte) {
	if len(dst) == 0 {
		return
	}
	gl.GetBufferSubData(bufferTarget(target), offset, len(dst), gl.Ptr(dst))
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

// ── Textures ──────────────────────────────────────────────────────────────────

func (d *Device) CreateTexture() gpu.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return gpu.Texture(t)
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture(target gpu.TextureTarget, t gpu.Texture) {
	gl.BindTexture(bindTarget(target), uint32(t))
}

func (d *Device) TexImage2D(target gpu.TextureTarget, level int, format gpu.TextureFormat, width, height int, pixels []byte) {
	internal, f, typ := pixelFormat(format)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(textureTarget(target), int32(level), internal,
		int32(width), int32(height), 0, f, typ, bytePtr(pixels))
}

func (d *Device) TexParameters(target gpu.TextureTarget, p gpu.SamplerParams) {
	t := bindTarget(target)
	gl.TexParameteri(t, gl.TEXTURE_WRAP_S, wrap(p.WrapS))
	gl.TexParameteri(t, gl.TEXTURE_WRAP_T, wrap(p.WrapT))
	if t == gl.TEXTURE_CUBE_MAP {
		gl.TexParameteri(t, gl.TEXTURE_WRAP_R, wrap(p.WrapT))
	}
	gl.TexParameteri(t, gl.TEXTURE_MIN_FILTER, filter(p.MinFilter))
	gl.TexParameteri(t, gl.TEXTURE_MAG_FILTER, filter(p.MagFilter))
	if d.maxAnisotropy > 1 && p.Anisotropy > 1 {
		gl.TexParameterf(t, textureMaxAnisotropy, min(p.Anisotropy, d.maxAnisotropy))
	}
	if p.CompareRef {
		gl.TexParameteri(t, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.TexParameteri(t, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)
	} else {
		gl.TexParameteri(t, gl.TEXTURE_COMPARE_MODE, gl.NONE)
	}
}

func (d *Device) GenerateMipmap(target gpu.TextureTarget) {
	gl.GenerateMipmap(bindTarget(target))
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

// ── Framebuffers ──────────────────────────────────────────────────────────────

func (d *Device) CreateFramebuffer() gpu.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return gpu.Framebuffer(fb)
}

func (d *Device) BindFramebuffer(target gpu.FramebufferTarget, fb gpu.Framebuffer) {
	gl.BindFramebuffer(framebufferTarget(target), uint32(fb))
}

func (d *Device) FramebufferTexture2D(a gpu.Attachment, target gpu.TextureTarget, t gpu.Texture, level int) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment(a), textureTarget(target), uint32(t), int32(level))
}

func (d *Device) CreateRenderbuffer() gpu.Renderbuffer {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	return gpu.Renderbuffer(rb)
}

func (d *Device) RenderbufferStorage(rb gpu.Renderbuffer, format gpu.TextureFormat, width, height, samples int) {
	internal, _, _ := pixelFormat(format)
	gl.BindRenderbuffer(gl.RENDERBUFFER, uint32(rb))
	if samples > 0 {
		gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, int32(min(samples, d.caps.MaxSamples)),
			uint32(internal), int32(width), int32(height))
	} else {
		gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(internal), int32(width), int32(height))
	}
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

func (d *Device) FramebufferRenderbuffer(a gpu.Attachment, rb gpu.Renderbuffer) {
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment(a), gl.RENDERBUFFER, uint32(rb))
}

func (d *Device) DrawBuffers(attachments []gpu.Attachment) {
	if len(attachments) == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, len(attachments))
	for i, a := range attachments {
		bufs[i] = attachment(a)
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

func (d *Device) CheckFramebufferStatus() gpu.FramebufferStatus {
	return framebufferStatus(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (d *Device) BlitFramebuffer(src, dst core.Rect, mask gpu.ClearMask, linear bool) {
	f := uint32(gl.NEAREST)
	if linear && mask == gpu.ColorBit {
		f = gl.LINEAR
	}
	gl.BlitFramebuffer(
		int32(src.X), int32(src.Y), int32(src.X+src.Width), int32(src.Y+src.Height),
		int32(dst.X), int32(dst.Y), int32(dst.X+dst.Width), int32(dst.Y+dst.Height),
		clearMask(mask), f)
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

func (d *Device) DeleteRenderbuffer(rb gpu.Renderbuffer) {
	id := uint32(rb)
	gl.DeleteRenderbuffers(1, &id)
}

// ── Shaders ───────────────────────────────────────────────────────────────────

func (d *Device) CreateShader(stage gpu.ShaderStage, source string) gpu.Shader {
	shader := gl.CreateShader(shaderStage(stage))
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	return gpu.Shader(shader)
}

// CompileShader blocks until the driver reports the compile status.
func (d *Device) CompileShader(s gpu.Shader) (bool, string) {
	shader := uint32(s)
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		return false, strings.TrimRight(log, "\x00")
	}
	return true, ""
}

func (d *Device) CreateProgram(vs, fs gpu.Shader) gpu.Program {
	prog := gl.CreateProgram()
	gl.AttachShader(prog, uint32(vs))
	gl.AttachShader(prog, uint32(fs))
	return gpu.Program(prog)
}

func (d *Device) LinkProgram(p gpu.Program) (bool, string) {
	prog := uint32(p)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		return false, strings.TrimRight(log, "\x00")
	}
	return true, ""
}

// ProgramReady polls the parallel compile extension without blocking.
func (d *Device) ProgramReady(p gpu.Program) bool {
	if !d.caps.ParallelCompile {
		return true
	}
	var done int32
	gl.GetProgramiv(uint32(p), completionStatusKHR, &done)
	return done != gl.FALSE
}

func (d *Device) DeleteShader(s gpu.Shader)   { gl.DeleteShader(uint32(s)) }
func (d *Device) DeleteProgram(p gpu.Program) { gl.DeleteProgram(uint32(p)) }
func (d *Device) UseProgram(p gpu.Program)    { gl.UseProgram(uint32(p)) }

func (d *Device) UniformLocation(p gpu.Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (d *Device) AttribLocation(p gpu.Program, name string) int32 {
	return gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
}

// ── Uniforms ──────────────────────────────────────────────────────────────────

func (d *Device) Uniform1i(loc int32, v int32)            { gl.Uniform1i(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)          { gl.Uniform1f(loc, v) }
func (d *Device) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (d *Device) Uniform3f(loc int32, x, y, z float32)    { gl.Uniform3f(loc, x, y, z) }
func (d *Device) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }

func (d *Device) Uniform1fv(loc int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(loc, int32(len(v)), &v[0])
	}
}

func (d *Device) Uniform3fv(loc int32, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(loc, int32(len(v)/3), &v[0])
	}
}

func (d *Device) Uniform4fv(loc int32, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(loc, int32(len(v)/4), &v[0])
	}
}

func (d *Device) Uniform1iv(loc int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(loc, int32(len(v)), &v[0])
	}
}

func (d *Device) UniformMatrix3fv(loc int32, v []float32) {
	if len(v) >= 9 {
		gl.UniformMatrix3fv(loc, int32(len(v)/9), false, &v[0])
	}
}

func (d *Device) UniformMatrix4fv(loc int32, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(loc, int32(len(v)/16), false, &v[0])
	}
}

// ── Fixed-function state ──────────────────────────────────────────────────────

func (d *Device) Enable(c gpu.Capability)      { gl.Enable(capability(c)) }
func (d *Device) Disable(c gpu.Capability)     { gl.Disable(capability(c)) }
func (d *Device) DepthFunc(f gpu.CompareFunc)  { gl.DepthFunc(compareFunc(f)) }
func (d *Device) DepthMask(write bool)         { gl.DepthMask(write) }
func (d *Device) ColorMask(r, g, b, a bool)    { gl.ColorMask(r, g, b, a) }
func (d *Device) StencilMask(mask uint32)      { gl.StencilMask(mask) }
func (d *Device) CullFace(f gpu.Face)          { gl.CullFace(face(f)) }
func (d *Device) LineWidth(w float32)          { gl.LineWidth(w) }
func (d *Device) ClearDepth(v float64)         { gl.ClearDepth(v) }
func (d *Device) ClearStencil(s int32)         { gl.ClearStencil(s) }
func (d *Device) Clear(mask gpu.ClearMask)     { gl.Clear(clearMask(mask)) }
func (d *Device) PolygonOffset(f, u float32)   { gl.PolygonOffset(f, u) }
func (d *Device) BlendColor(c core.Color)      { gl.BlendColor(c.R, c.G, c.B, c.A) }
func (d *Device) ClearColor(c core.Color)      { gl.ClearColor(c.R, c.G, c.B, c.A) }
func (d *Device) EnableVertexAttrib(l uint32)  { gl.EnableVertexAttribArray(l) }
func (d *Device) DisableVertexAttrib(l uint32) { gl.DisableVertexAttribArray(l) }

func (d *Device) StencilFunc(f gpu.CompareFunc, ref int32, mask uint32) {
	gl.StencilFunc(compareFunc(f), ref, mask)
}

func (d *Device) StencilOp(fail, zfail, zpass gpu.StencilOp) {
	gl.StencilOp(stencilOp(fail), stencilOp(zfail), stencilOp(zpass))
}

func (d *Device) BlendEquationSeparate(rgb, alpha gpu.BlendEquation) {
	gl.BlendEquationSeparate(blendEquation(rgb), blendEquation(alpha))
}

func (d *Device) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha gpu.BlendFactor) {
	gl.BlendFuncSeparate(blendFactor(srcRGB), blendFactor(dstRGB), blendFactor(srcAlpha), blendFactor(dstAlpha))
}

func (d *Device) FrontFace(w gpu.Winding) {
	if w == gpu.CW {
		gl.FrontFace(gl.CW)
		return
	}
	gl.FrontFace(gl.CCW)
}

func (d *Device) Scissor(r core.Rect) {
	gl.Scissor(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height))
}

func (d *Device) Viewport(r core.Rect) {
	gl.Viewport(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height))
}

// ── Vertex input and draws ────────────────────────────────────────────────────

func (d *Device) VertexAttribPointer(loc uint32, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	gl.VertexAttribPointer(loc, int32(size), dataType(typ), normalized, int32(stride), gl.PtrOffset(offset))
}

func (d *Device) VertexAttribDivisor(loc uint32, divisor int) {
	gl.VertexAttribDivisor(loc, uint32(divisor))
}

func (d *Device) DrawArrays(mode gpu.DrawMode, first, count int) {
	gl.DrawArrays(drawMode(mode), int32(first), int32(count))
}

func (d *Device) DrawElements(mode gpu.DrawMode, count int, typ gpu.DataType, offset int) {
	gl.DrawElements(drawMode(mode), int32(count), dataType(typ), gl.PtrOffset(offset))
}

func (d *Device) DrawArraysInstanced(mode gpu.DrawMode, first, count, instances int) {
	gl.DrawArraysInstanced(drawMode(mode), int32(first), int32(count), int32(instances))
}

func (d *Device) DrawElementsInstanced(mode gpu.DrawMode, count int, typ gpu.DataType, offset, instances int) {
	gl.DrawElementsInstanced(drawMode(mode), int32(count), dataType(typ), gl.PtrOffset(offset), int32(instances))
}

func (d *Device) MultiDrawArrays(mode gpu.DrawMode, firsts, counts []int32) {
	if len(counts) == 0 {
		return
	}
	gl.MultiDrawArrays(drawMode(mode), &firsts[0], &counts[0], int32(len(counts)))
}

func (d *Device) MultiDrawElements(mode gpu.DrawMode, counts []int32, typ gpu.DataType, offsets []int) {
	if len(counts) == 0 {
		return
	}
	ptrs := make([]unsafe.Pointer, len(offsets))
	for i, off := range offsets {
		ptrs[i] = gl.PtrOffset(off)
	}
	gl.MultiDrawElements(drawMode(mode), &counts[0], dataType(typ), &ptrs[0], int32(len(counts)))
}

// ── Readback ──────────────────────────────────────────────────────────────────

// ReadPixels copies r of the bound read framebuffer into the pixel pack
// buffer into. The copy completes asynchronously; fence it before mapping.
func (d *Device) ReadPixels(r core.Rect, format gpu.TextureFormat, into gpu.Buffer) {
	_, f, typ := pixelFormat(format)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, uint32(into))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height), f, typ, gl.PtrOffset(0))
}

func (d *Device) FenceSync() gpu.Fence {
	d.nextFence++
	d.fences[d.nextFence] = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	return d.nextFence
}

// FenceSignaled polls with a zero timeout. Unknown fences count as signaled.
func (d *Device) FenceSignaled(f gpu.Fence) bool {
	sync, ok := d.fences[f]
	if !ok {
		return true
	}
	switch gl.ClientWaitSync(sync, gl.SYNC_FLUSH_COMMANDS_BIT, 0) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
		return true
	case gl.WAIT_FAILED:
		d.log.Warn("fence wait failed", zap.Uint64("fence", uint64(f)))
		return true
	}
	return false
}

func (d *Device) DeleteFence(f gpu.Fence) {
	if sync, ok := d.fences[f]; ok {
		gl.DeleteSync(sync)
		delete(d.fences, f)
	}
}

func bytePtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return gl.Ptr(b)
}

var _ gpu.Device = (*Device)(nil)
