package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"frame-renderer/gpu"
)

// Extension enums missing from the 4.1 core bindings.
const (
	completionStatusKHR       = 0x91B1
	textureMaxAnisotropy      = 0x84FE
	maxTextureMaxAnisotropy   = 0x84FF
	extParallelCompileKHR     = "GL_KHR_parallel_shader_compile"
	extParallelCompileARB     = "GL_ARB_parallel_shader_compile"
	extAnisotropicFiltering   = "GL_EXT_texture_filter_anisotropic"
	extAnisotropicFilteringGL = "GL_ARB_texture_filter_anisotropic"
)

func bufferTarget(t gpu.BufferTarget) uint32 {
	switch t {
	case gpu.ElementArrayBuffer:
		return gl.ELEMENT_ARRAY_BUFFER
	case gpu.PixelPackBuffer:
		return gl.PIXEL_PACK_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func usage(u gpu.Usage) uint32 {
	switch u {
	case gpu.DynamicDraw:
		return gl.DYNAMIC_DRAW
	case gpu.StreamDraw:
		return gl.STREAM_DRAW
	case gpu.StreamRead:
		return gl.STREAM_READ
	}
	return gl.STATIC_DRAW
}

func textureTarget(t gpu.TextureTarget) uint32 {
	switch t {
	case gpu.Texture2D:
		return gl.TEXTURE_2D
	case gpu.TextureCubeMap:
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_CUBE_MAP_POSITIVE_X + uint32(t-gpu.CubeMapPositiveX)
}

// bindTarget is the target a texture image target is bound through.
func bindTarget(t gpu.TextureTarget) uint32 {
	if t == gpu.Texture2D {
		return gl.TEXTURE_2D
	}
	return gl.TEXTURE_CUBE_MAP
}

// pixelFormat returns internal format, client format and component type.
func pixelFormat(f gpu.TextureFormat) (internal int32, format, typ uint32) {
	switch f {
	case gpu.RGB8:
		return gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE
	case gpu.RG8:
		return gl.RG8, gl.RG, gl.UNSIGNED_BYTE
	case gpu.R8:
		return gl.R8, gl.RED, gl.UNSIGNED_BYTE
	case gpu.RGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT
	case gpu.RGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case gpu.Depth16:
		return gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT
	case gpu.Depth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT
	case gpu.Depth32F:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
	case gpu.Depth24Stencil8:
		return gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8
	case gpu.Stencil8:
		return gl.STENCIL_INDEX8, gl.STENCIL_INDEX, gl.UNSIGNED_BYTE
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

func wrap(w gpu.Wrap) int32 {
	switch w {
	case gpu.ClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gpu.MirroredRepeat:
		return gl.MIRRORED_REPEAT
	}
	return gl.REPEAT
}

func filter(f gpu.Filter) int32 {
	switch f {
	case gpu.Nearest:
		return gl.NEAREST
	case gpu.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	case gpu.LinearMipmapNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	case gpu.NearestMipmapNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case gpu.NearestMipmapLinear:
		return gl.NEAREST_MIPMAP_LINEAR
	}
	return gl.LINEAR
}

func framebufferTarget(t gpu.FramebufferTarget) uint32 {
	switch t {
	case gpu.ReadFramebuffer:
		return gl.READ_FRAMEBUFFER
	case gpu.DrawFramebuffer:
		return gl.DRAW_FRAMEBUFFER
	}
	return gl.FRAMEBUFFER
}

func attachment(a gpu.Attachment) uint32 {
	switch a {
	case gpu.NoAttachment:
		return gl.NONE
	case gpu.DepthAttachment:
		return gl.DEPTH_ATTACHMENT
	case gpu.StencilAttachment:
		return gl.STENCIL_ATTACHMENT
	case gpu.DepthStencilAttachment:
		return gl.DEPTH_STENCIL_ATTACHMENT
	}
	return gl.COLOR_ATTACHMENT0 + uint32(a-gpu.ColorAttachment0)
}

func framebufferStatus(s uint32) gpu.FramebufferStatus {
	switch s {
	case gl.FRAMEBUFFER_COMPLETE:
		return gpu.FramebufferComplete
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return gpu.FramebufferIncompleteAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return gpu.FramebufferIncompleteMissingAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return gpu.FramebufferIncompleteMultisample
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return gpu.FramebufferUnsupported
	}
	return gpu.FramebufferUndefined
}

func shaderStage(s gpu.ShaderStage) uint32 {
	if s == gpu.FragmentShader {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func capability(c gpu.Capability) uint32 {
	switch c {
	case gpu.Blend:
		return gl.BLEND
	case gpu.DepthTest:
		return gl.DEPTH_TEST
	case gpu.StencilTest:
		return gl.STENCIL_TEST
	case gpu.CullFaceTest:
		return gl.CULL_FACE
	case gpu.ScissorTest:
		return gl.SCISSOR_TEST
	case gpu.PolygonOffsetFill:
		return gl.POLYGON_OFFSET_FILL
	case gpu.SampleAlphaToCoverage:
		return gl.SAMPLE_ALPHA_TO_COVERAGE
	}
	return gl.DITHER
}

func compareFunc(f gpu.CompareFunc) uint32 {
	switch f {
	case gpu.Never:
		return gl.NEVER
	case gpu.Less:
		return gl.LESS
	case gpu.Equal:
		return gl.EQUAL
	case gpu.Greater:
		return gl.GREATER
	case gpu.NotEqual:
		return gl.NOTEQUAL
	case gpu.GreaterEqual:
		return gl.GEQUAL
	case gpu.Always:
		return gl.ALWAYS
	}
	return gl.LEQUAL
}

func stencilOp(op gpu.StencilOp) uint32 {
	switch op {
	case gpu.Zero:
		return gl.ZERO
	case gpu.Replace:
		return gl.REPLACE
	case gpu.Incr:
		return gl.INCR
	case gpu.IncrWrap:
		return gl.INCR_WRAP
	case gpu.Decr:
		return gl.DECR
	case gpu.DecrWrap:
		return gl.DECR_WRAP
	case gpu.Invert:
		return gl.INVERT
	}
	return gl.KEEP
}

func blendEquation(e gpu.BlendEquation) uint32 {
	switch e {
	case gpu.FuncSubtract:
		return gl.FUNC_SUBTRACT
	case gpu.FuncReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case gpu.Min:
		return gl.MIN
	case gpu.Max:
		return gl.MAX
	}
	return gl.FUNC_ADD
}

var blendFactors = map[gpu.BlendFactor]uint32{
	gpu.FactorZero:                  gl.ZERO,
	gpu.FactorOne:                   gl.ONE,
	gpu.FactorSrcColor:              gl.SRC_COLOR,
	gpu.FactorOneMinusSrcColor:      gl.ONE_MINUS_SRC_COLOR,
	gpu.FactorSrcAlpha:              gl.SRC_ALPHA,
	gpu.FactorOneMinusSrcAlpha:      gl.ONE_MINUS_SRC_ALPHA,
	gpu.FactorDstAlpha:              gl.DST_ALPHA,
	gpu.FactorOneMinusDstAlpha:      gl.ONE_MINUS_DST_ALPHA,
	gpu.FactorDstColor:              gl.DST_COLOR,
	gpu.FactorOneMinusDstColor:      gl.ONE_MINUS_DST_COLOR,
	gpu.FactorSrcAlphaSaturate:      gl.SRC_ALPHA_SATURATE,
	gpu.FactorConstantColor:         gl.CONSTANT_COLOR,
	gpu.FactorOneMinusConstantColor: gl.ONE_MINUS_CONSTANT_COLOR,
	gpu.FactorConstantAlpha:         gl.CONSTANT_ALPHA,
	gpu.FactorOneMinusConstantAlpha: gl.ONE_MINUS_CONSTANT_ALPHA,
}

func blendFactor(f gpu.BlendFactor) uint32 {
	if v, ok := blendFactors[f]; ok {
		return v
	}
	return gl.ONE
}

func face(f gpu.Face) uint32 {
	switch f {
	case gpu.FaceFront:
		return gl.FRONT
	case gpu.FaceFrontAndBack:
		return gl.FRONT_AND_BACK
	}
	return gl.BACK
}

func clearMask(m gpu.ClearMask) uint32 {
	var bits uint32
	if m&gpu.ColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if m&gpu.DepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if m&gpu.StencilBit != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	return bits
}

func dataType(t gpu.DataType) uint32 {
	switch t {
	case gpu.HalfFloat:
		return gl.HALF_FLOAT
	case gpu.Byte:
		return gl.BYTE
	case gpu.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case gpu.Short:
		return gl.SHORT
	case gpu.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case gpu.Int:
		return gl.INT
	case gpu.UnsignedInt:
		return gl.UNSIGNED_INT
	}
	return gl.FLOAT
}

func drawMode(m gpu.DrawMode) uint32 {
	switch m {
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.Lines:
		return gl.LINES
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.LineLoop:
		return gl.LINE_LOOP
	case gpu.Points:
		return gl.POINTS
	}
	return gl.TRIANGLES
}
