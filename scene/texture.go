package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// Mapping selects how a texture is projected onto geometry.
type Mapping int

const (
	UVMapping Mapping = iota
	CubeReflectionMapping
	CubeRefractionMapping
	EquirectangularReflectionMapping
	EquirectangularRefractionMapping
)

type ColorSpace int

const (
	NoColorSpace ColorSpace = iota
	SRGBColorSpace
	LinearSRGBColorSpace
)

// Texture holds CPU-side pixel data for a 2D or cube texture.
type Texture struct {
	Disposable

	ID     uint64
	Name   string
	Width  int
	Height int
	Format gpu.TextureFormat
	// Pixels is row-major, top-to-bottom. Nil for textures the GPU renders into.
	Pixels []byte
	// Faces holds the six images of a cube texture in +X,-X,+Y,-Y,+Z,-Z order.
	Faces  [6][]byte
	IsCube bool

	WrapS, WrapT    gpu.Wrap
	MinFilter       gpu.Filter
	MagFilter       gpu.Filter
	Anisotropy      float32
	GenerateMipmaps bool
	Mapping         Mapping
	ColorSpace      ColorSpace

	version uint64
	target  *RenderTarget
}

// NewTexture wraps RGBA8 pixels.
func NewTexture(name string, width, height int, pixels []byte) *Texture {
	return &Texture{
		ID:              core.NextID(),
		Name:            name,
		Width:           width,
		Height:          height,
		Format:          gpu.RGBA8,
		Pixels:          pixels,
		WrapS:           gpu.ClampToEdge,
		WrapT:           gpu.ClampToEdge,
		MinFilter:       gpu.LinearMipmapLinear,
		MagFilter:       gpu.Linear,
		GenerateMipmaps: true,
		ColorSpace:      SRGBColorSpace,
		version:         1,
	}
}

// NewDataTexture wraps raw texels of any format without mipmaps.
func NewDataTexture(name string, width, height int, format gpu.TextureFormat, pixels []byte) *Texture {
	t := NewTexture(name, width, height, pixels)
	t.Format = format
	t.MinFilter = gpu.Nearest
	t.MagFilter = gpu.Nearest
	t.GenerateMipmaps = false
	t.ColorSpace = NoColorSpace
	return t
}

// NewCubeTexture builds a cube map from six square RGBA8 faces.
func NewCubeTexture(name string, size int, faces [6][]byte) *Texture {
	t := NewTexture(name, size, size, nil)
	t.Faces = faces
	t.IsCube = true
	t.Mapping = CubeReflectionMapping
	return t
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	t := NewTexture(name, 1, 1, []byte{r, g, b, a})
	t.MinFilter = gpu.Nearest
	t.MagFilter = gpu.Nearest
	t.GenerateMipmaps = false
	return t
}

// NewCheckerTexture creates a size x size checkerboard of 8 x 8 cells.
func NewCheckerTexture(name string, size int, c1, c2 color.RGBA) *Texture {
	pixels := make([]byte, size*size*4)
	cell := max(size/8, 1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := c2
			if (x/cell+y/cell)%2 == 0 {
				c = c1
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = c.R, c.G, c.B, c.A
		}
	}
	t := NewTexture(name, size, size, pixels)
	t.WrapS = gpu.Repeat
	t.WrapT = gpu.Repeat
	return t
}

func (t *Texture) Version() uint64 { return t.version }

// NeedsUpdate schedules a re-upload of the pixel data.
func (t *Texture) NeedsUpdate() { t.version++ }

// ByteSize is the size of the level-0 image data across all faces.
func (t *Texture) ByteSize() int {
	n := t.Width * t.Height * t.Format.BytesPerPixel()
	if t.IsCube {
		return 6 * n
	}
	return n
}

// RenderTarget returns the target this texture is attached to, or nil for
// textures backed by CPU pixels.
func (t *Texture) RenderTarget() *RenderTarget {
	return t.target
}

// Dispose notifies GPU caches that the texture can be freed.
func (t *Texture) Dispose() {
	t.dispatchDispose()
}

// DecodeTexture decodes a PNG, JPEG, BMP or WebP stream into an RGBA8 Texture.
func DecodeTexture(name string, r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", name, err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return NewTexture(name, bounds.Dx(), bounds.Dy(), rgba.Pix), nil
}

// DecodeTextureBytes is DecodeTexture over an in-memory buffer.
func DecodeTextureBytes(name string, data []byte) (*Texture, error) {
	return DecodeTexture(name, bytes.NewReader(data))
}

// LoadTexture reads an image file from disk and returns a CPU-side Texture.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()
	return DecodeTexture(path, f)
}
