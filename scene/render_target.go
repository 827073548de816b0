package scene

import (
	"frame-renderer/core"
	"frame-renderer/gpu"
)

// RenderTargetOptions configures the attachments of a RenderTarget.
type RenderTargetOptions struct {
	Format          gpu.TextureFormat
	MinFilter       gpu.Filter
	MagFilter       gpu.Filter
	GenerateMipmaps bool
	DepthBuffer     bool
	StencilBuffer   bool
	// DepthFormat selects a sampled depth attachment. Zero means a renderbuffer.
	DepthTexture bool
	DepthFormat  gpu.TextureFormat
	Samples      int
	// Count is the number of color attachments; 0 is treated as 1.
	Count  int
	IsCube bool
}

// DefaultRenderTargetOptions is an RGBA8 color attachment with a depth buffer.
func DefaultRenderTargetOptions() RenderTargetOptions {
	return RenderTargetOptions{
		Format:      gpu.RGBA8,
		MinFilter:   gpu.Linear,
		MagFilter:   gpu.Linear,
		DepthBuffer: true,
		Count:       1,
	}
}

// RenderTarget is an offscreen destination for draw output.
type RenderTarget struct {
	Disposable

	ID            uint64
	Width, Height int
	Samples       int
	DepthBuffer   bool
	StencilBuffer bool
	DepthTexture  *Texture
	IsCube        bool
	Textures      []*Texture

	Viewport    core.Rect
	Scissor     core.Rect
	ScissorTest bool
}

func NewRenderTarget(width, height int, opts RenderTargetOptions) *RenderTarget {
	rt := &RenderTarget{
		ID:            core.NextID(),
		Width:         width,
		Height:        height,
		Samples:       opts.Samples,
		DepthBuffer:   opts.DepthBuffer,
		StencilBuffer: opts.StencilBuffer,
		IsCube:        opts.IsCube,
		Viewport:      core.Rect{Width: width, Height: height},
		Scissor:       core.Rect{Width: width, Height: height},
	}
	count := max(opts.Count, 1)
	for i := 0; i < count; i++ {
		t := NewDataTexture("", width, height, opts.Format, nil)
		t.MinFilter = opts.MinFilter
		t.MagFilter = opts.MagFilter
		t.GenerateMipmaps = opts.GenerateMipmaps
		t.IsCube = opts.IsCube
		t.target = rt
		rt.Textures = append(rt.Textures, t)
	}
	if opts.DepthTexture {
		format := opts.DepthFormat
		if !format.IsDepth() {
			format = gpu.Depth24
		}
		dt := NewDataTexture("", width, height, format, nil)
		dt.target = rt
		rt.DepthTexture = dt
	}
	return rt
}

// Texture returns the first color attachment.
func (rt *RenderTarget) Texture() *Texture {
	return rt.Textures[0]
}

// SetSize resizes the target. GPU storage is released and recreated on next use.
func (rt *RenderTarget) SetSize(width, height int) {
	if rt.Width == width && rt.Height == height {
		return
	}
	rt.dispatchDispose()
	rt.Width, rt.Height = width, height
	for _, t := range rt.Textures {
		t.Width, t.Height = width, height
	}
	if rt.DepthTexture != nil {
		rt.DepthTexture.Width, rt.DepthTexture.Height = width, height
	}
	rt.Viewport = core.Rect{Width: width, Height: height}
	rt.Scissor = core.Rect{Width: width, Height: height}
}

// Dispose notifies GPU caches that the target's framebuffer and attachments can be freed.
func (rt *RenderTarget) Dispose() {
	rt.dispatchDispose()
}
