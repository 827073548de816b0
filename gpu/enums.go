package gpu

import "fmt"

type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
	PixelPackBuffer
)

// Usage hints how often a buffer's content changes.
type Usage int

const (
	StaticDraw Usage = iota
	DynamicDraw
	StreamDraw
	StreamRead
)

type TextureTarget int

const (
	Texture2D TextureTarget = iota
	TextureCubeMap
	CubeMapPositiveX
	CubeMapNegativeX
	CubeMapPositiveY
	CubeMapNegativeY
	CubeMapPositiveZ
	CubeMapNegativeZ
)

// CubeFace returns the image target of face i (0..5) of a cube map.
func CubeFace(i int) TextureTarget {
	return CubeMapPositiveX + TextureTarget(i)
}

type TextureFormat int

const (
	RGBA8 TextureFormat = iota
	RGB8
	RG8
	R8
	RGBA16F
	RGBA32F
	Depth16
	Depth24
	Depth32F
	Depth24Stencil8
	Stencil8
)

// BytesPerPixel returns the storage size of one texel.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case RGBA8, Depth24, Depth32F, Depth24Stencil8:
		return 4
	case RGB8:
		return 3
	case RG8, Depth16:
		return 2
	case R8, Stencil8:
		return 1
	case RGBA16F:
		return 8
	case RGBA32F:
		return 16
	}
	return 4
}

func (f TextureFormat) IsDepth() bool {
	return f == Depth16 || f == Depth24 || f == Depth32F || f == Depth24Stencil8
}

func (f TextureFormat) HasStencil() bool {
	return f == Depth24Stencil8 || f == Stencil8
}

type Wrap int

const (
	Repeat Wrap = iota
	ClampToEdge
	MirroredRepeat
)

type Filter int

const (
	Linear Filter = iota
	Nearest
	LinearMipmapLinear
	LinearMipmapNearest
	NearestMipmapNearest
	NearestMipmapLinear
)

func (f Filter) UsesMipmaps() bool {
	return f >= LinearMipmapLinear
}

// SamplerParams is the sampling state stored with a texture object.
type SamplerParams struct {
	WrapS, WrapT Wrap
	MinFilter    Filter
	MagFilter    Filter
	Anisotropy   float32
	// CompareRef enables hardware depth comparison for shadow samplers.
	CompareRef bool
}

type FramebufferTarget int

const (
	FramebufferBoth FramebufferTarget = iota
	ReadFramebuffer
	DrawFramebuffer
)

type Attachment int

const (
	ColorAttachment0 Attachment = iota
	ColorAttachment1
	ColorAttachment2
	ColorAttachment3
)

const (
	NoAttachment Attachment = -1

	DepthAttachment Attachment = 100 + iota
	StencilAttachment
	DepthStencilAttachment
)

// ColorAttachment returns the i-th color attachment point.
func ColorAttachment(i int) Attachment {
	return ColorAttachment0 + Attachment(i)
}

type FramebufferStatus int

const (
	FramebufferComplete FramebufferStatus = iota
	FramebufferIncompleteAttachment
	FramebufferIncompleteMissingAttachment
	FramebufferIncompleteMultisample
	FramebufferUnsupported
	FramebufferUndefined
)

var statusNames = [...]string{
	"complete",
	"incomplete attachment",
	"missing attachment",
	"incomplete multisample",
	"unsupported",
	"undefined",
}

func (s FramebufferStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("FramebufferStatus(%d)", int(s))
}

type ShaderStage int

const (
	VertexShader ShaderStage = iota
	FragmentShader
)

func (s ShaderStage) String() string {
	if s == VertexShader {
		return "vertex"
	}
	return "fragment"
}

// Capability is a server-side toggle controlled with Enable/Disable.
type Capability int

const (
	Blend Capability = iota
	DepthTest
	StencilTest
	CullFaceTest
	ScissorTest
	PolygonOffsetFill
	SampleAlphaToCoverage
	Dither
	numCapabilities
)

// NumCapabilities is the number of Capability values.
const NumCapabilities = int(numCapabilities)

var capabilityNames = [...]string{
	"Blend", "DepthTest", "StencilTest", "CullFace", "ScissorTest",
	"PolygonOffsetFill", "SampleAlphaToCoverage", "Dither",
}

func (c Capability) String() string {
	if c >= 0 && int(c) < len(capabilityNames) {
		return capabilityNames[c]
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// CompareFunc is used for depth and stencil tests. The zero value means "unknown".
type CompareFunc int

const (
	Never CompareFunc = iota + 1
	Less
	Equal
	LessEqual
	Greater
	NotEqual
	GreaterEqual
	Always
)

type StencilOp int

const (
	Keep StencilOp = iota + 1
	Zero
	Replace
	Incr
	IncrWrap
	Decr
	DecrWrap
	Invert
)

type BlendEquation int

const (
	FuncAdd BlendEquation = iota + 1
	FuncSubtract
	FuncReverseSubtract
	Min
	Max
)

type BlendFactor int

const (
	FactorZero BlendFactor = iota + 1
	FactorOne
	FactorSrcColor
	FactorOneMinusSrcColor
	FactorSrcAlpha
	FactorOneMinusSrcAlpha
	FactorDstAlpha
	FactorOneMinusDstAlpha
	FactorDstColor
	FactorOneMinusDstColor
	FactorSrcAlphaSaturate
	FactorConstantColor
	FactorOneMinusConstantColor
	FactorConstantAlpha
	FactorOneMinusConstantAlpha
)

type Face int

const (
	FaceBack Face = iota + 1
	FaceFront
	FaceFrontAndBack
)

type Winding int

const (
	CCW Winding = iota + 1
	CW
)

type ClearMask uint32

const (
	ColorBit ClearMask = 1 << iota
	DepthBit
	StencilBit
)

type DataType int

const (
	Float DataType = iota
	HalfFloat
	Byte
	UnsignedByte
	Short
	UnsignedShort
	Int
	UnsignedInt
)

// Size returns the byte size of one component.
func (t DataType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort, HalfFloat:
		return 2
	}
	return 4
}

type DrawMode int

const (
	Triangles DrawMode = iota
	TriangleStrip
	Lines
	LineStrip
	LineLoop
	Points
)
