// Package gpu defines the stateful graphics device the renderer submits commands to.
//
// The interface mirrors a GL-style API: objects are referred to by opaque integer
// handles, and most calls act on whatever object is currently bound.
package gpu

import "frame-renderer/core"

type (
	Buffer       uint32
	Texture      uint32
	Framebuffer  uint32
	Renderbuffer uint32
	Shader       uint32
	Program      uint32
	Fence        uint64
)

// Zero handles refer to "nothing" (or the default framebuffer).
const (
	NoBuffer           Buffer      = 0
	NoTexture          Texture     = 0
	NoProgram          Program     = 0
	DefaultFramebuffer Framebuffer = 0
)

// Device is the GPU command surface. Implementations are not safe for concurrent use.
type Device interface {
	Caps() Caps
	IsContextLost() bool

	CreateBuffer() Buffer
	BindBuffer(target BufferTarget, b Buffer)
	BufferData(target BufferTarget, data []byte, usage Usage)
	BufferSubData(target BufferTarget, offset int, data []byte)
	GetBufferSubData(target BufferTarget, offset int, dst []byte)
	DeleteBuffer(b Buffer)

	CreateTexture() Texture
	ActiveTexture(unit int)
	BindTexture(target TextureTarget, t Texture)
	TexImage2D(target TextureTarget, level int, format TextureFormat, width, height int, pixels []byte)
	TexParameters(target TextureTarget, p SamplerParams)
	GenerateMipmap(target TextureTarget)
	DeleteTexture(t Texture)

	CreateFramebuffer() Framebuffer
	BindFramebuffer(target FramebufferTarget, fb Framebuffer)
	FramebufferTexture2D(attachment Attachment, target TextureTarget, t Texture, level int)
	CreateRenderbuffer() Renderbuffer
	RenderbufferStorage(rb Renderbuffer, format TextureFormat, width, height, samples int)
	FramebufferRenderbuffer(attachment Attachment, rb Renderbuffer)
	DrawBuffers(attachments []Attachment)
	CheckFramebufferStatus() FramebufferStatus
	BlitFramebuffer(src, dst core.Rect, mask ClearMask, linear bool)
	DeleteFramebuffer(fb Framebuffer)
	DeleteRenderbuffer(rb Renderbuffer)

	CreateShader(stage ShaderStage, source string) Shader
	CompileShader(s Shader) (ok bool, log string)
	CreateProgram(vs, fs Shader) Program
	LinkProgram(p Program) (ok bool, log string)
	ProgramReady(p Program) bool
	DeleteShader(s Shader)
	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformLocation(p Program, name string) int32
	AttribLocation(p Program, name string) int32

	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	Uniform4f(loc int32, x, y, z, w float32)
	Uniform1fv(loc int32, v []float32)
	Uniform3fv(loc int32, v []float32)
	Uniform4fv(loc int32, v []float32)
	Uniform1iv(loc int32, v []int32)
	UniformMatrix3fv(loc int32, v []float32)
	UniformMatrix4fv(loc int32, v []float32)

	Enable(c Capability)
	Disable(c Capability)
	DepthFunc(f CompareFunc)
	DepthMask(write bool)
	ColorMask(r, g, b, a bool)
	StencilFunc(f CompareFunc, ref int32, mask uint32)
	StencilOp(fail, zfail, zpass StencilOp)
	StencilMask(mask uint32)
	BlendEquationSeparate(rgb, alpha BlendEquation)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha BlendFactor)
	BlendColor(c core.Color)
	CullFace(f Face)
	FrontFace(w Winding)
	LineWidth(w float32)
	PolygonOffset(factor, units float32)
	Scissor(r core.Rect)
	Viewport(r core.Rect)
	ClearColor(c core.Color)
	ClearDepth(d float64)
	ClearStencil(s int32)
	Clear(mask ClearMask)

	EnableVertexAttrib(loc uint32)
	DisableVertexAttrib(loc uint32)
	VertexAttribPointer(loc uint32, size int, typ DataType, normalized bool, stride, offset int)
	VertexAttribDivisor(loc uint32, divisor int)

	DrawArrays(mode DrawMode, first, count int)
	DrawElements(mode DrawMode, count int, typ DataType, offset int)
	DrawArraysInstanced(mode DrawMode, first, count, instances int)
	DrawElementsInstanced(mode DrawMode, count int, typ DataType, offset, instances int)
	MultiDrawArrays(mode DrawMode, firsts, counts []int32)
	MultiDrawElements(mode DrawMode, counts []int32, typ DataType, offsets []int)

	ReadPixels(r core.Rect, format TextureFormat, into Buffer)
	FenceSync() Fence
	FenceSignaled(f Fence) bool
	DeleteFence(f Fence)
}

// Caps describes device limits and optional features.
type Caps struct {
	MaxTextureUnits    int
	MaxVertexAttribs   int
	MaxTextureSize     int
	MaxSamples         int
	MaxVertexUniforms  int
	Instancing         bool
	MultiDraw          bool
	ParallelCompile    bool
	FloatRenderTargets bool
	VertexTextures     bool
}

// DefaultCaps is what a GL 4.1 core context guarantees at minimum.
func DefaultCaps() Caps {
	return Caps{
		MaxTextureUnits:    16,
		MaxVertexAttribs:   16,
		MaxTextureSize:     4096,
		MaxSamples:         4,
		MaxVertexUniforms:  1024,
		Instancing:         true,
		MultiDraw:          true,
		FloatRenderTargets: true,
		VertexTextures:     true,
	}
}
