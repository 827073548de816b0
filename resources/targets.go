package resources

import (
	"fmt"

	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// TargetRecord is the GPU side of one RenderTarget. Multisampled targets
// render into renderbuffers on Framebuffer and resolve into the textures
// attached to ResolveFramebuffer.
type TargetRecord struct {
	Framebuffer        gpu.Framebuffer
	ResolveFramebuffer gpu.Framebuffer
	ColorRenderbuffers []gpu.Renderbuffer
	DepthRenderbuffer  gpu.Renderbuffer
	Width, Height      int
}

// Targets maps render target ids to framebuffers.
type Targets struct {
	device   gpu.Device
	binder   Binder
	textures *Textures
	records  map[uint64]*TargetRecord
	info     *Info
	log      *zap.Logger
}

// scratchUnit is the texture unit used while allocating attachments.
const scratchUnit = 0

func validateTarget(rt *scene.RenderTarget, caps gpu.Caps) error {
	switch {
	case rt.StencilBuffer && !rt.DepthBuffer && rt.DepthTexture == nil:
		return &core.UnsupportedFeatureCombinationError{
			Feature: "stencil buffer",
			Detail:  "a stencil buffer requires a depth buffer",
		}
	case rt.DepthTexture != nil && !rt.DepthTexture.Format.IsDepth():
		return &core.UnsupportedFeatureCombinationError{
			Feature: "depth texture",
			Detail:  fmt.Sprintf("format %d is not a depth format", rt.DepthTexture.Format),
		}
	case rt.DepthTexture != nil && rt.DepthTexture.Format.HasStencil() != rt.StencilBuffer:
		return &core.UnsupportedFeatureCombinationError{
			Feature: "depth texture",
			Detail:  "depth texture format and stencil buffer flag disagree",
		}
	case rt.Samples > caps.MaxSamples:
		return &core.UnsupportedFeatureCombinationError{
			Feature: "multisampling",
			Detail:  fmt.Sprintf("%d samples requested, device supports %d", rt.Samples, caps.MaxSamples),
		}
	case rt.Samples > 0 && rt.IsCube:
		return &core.UnsupportedFeatureCombinationError{
			Feature: "multisampling",
			Detail:  "cube render targets cannot be multisampled",
		}
	}
	return nil
}

// Setup creates the framebuffer and attachments of rt if they do not exist.
func (t *Targets) Setup(rt *scene.RenderTarget) error {
	if _, ok := t.records[rt.ID]; ok {
		return nil
	}
	if err := validateTarget(rt, t.device.Caps()); err != nil {
		return err
	}

	rec := &TargetRecord{
		Framebuffer: t.device.CreateFramebuffer(),
		Width:       rt.Width,
		Height:      rt.Height,
	}
	t.records[rt.ID] = rec
	t.info.Targets++
	rt.OnDispose(t, func() { t.Remove(rt) })

	colorTarget := gpu.Texture2D
	if rt.IsCube {
		colorTarget = gpu.CubeFace(0)
	}
	attachments := make([]gpu.Attachment, len(rt.Textures))
	for i := range rt.Textures {
		attachments[i] = gpu.ColorAttachment(i)
	}

	if rt.Samples > 0 {
		rec.ResolveFramebuffer = t.device.CreateFramebuffer()
		t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.ResolveFramebuffer)
		for i, tex := range rt.Textures {
			trec := t.textures.allocate(tex, scratchUnit)
			t.device.FramebufferTexture2D(attachments[i], colorTarget, trec.Texture, 0)
		}
		t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.Framebuffer)
		for i, tex := range rt.Textures {
			rb := t.device.CreateRenderbuffer()
			t.device.RenderbufferStorage(rb, tex.Format, rt.Width, rt.Height, rt.Samples)
			t.device.FramebufferRenderbuffer(attachments[i], rb)
			rec.ColorRenderbuffers = append(rec.ColorRenderbuffers, rb)
		}
	} else {
		t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.Framebuffer)
		for i, tex := range rt.Textures {
			trec := t.textures.allocate(tex, scratchUnit)
			t.device.FramebufferTexture2D(attachments[i], colorTarget, trec.Texture, 0)
		}
	}
	if len(attachments) > 1 {
		t.device.DrawBuffers(attachments)
	}

	depthAttachment := gpu.DepthAttachment
	if rt.StencilBuffer {
		depthAttachment = gpu.DepthStencilAttachment
	}
	switch {
	case rt.DepthTexture != nil && rt.Samples == 0:
		trec := t.textures.allocate(rt.DepthTexture, scratchUnit)
		t.device.FramebufferTexture2D(depthAttachment, gpu.Texture2D, trec.Texture, 0)
	case rt.DepthBuffer || rt.DepthTexture != nil:
		format := gpu.Depth24
		if rt.StencilBuffer {
			format = gpu.Depth24Stencil8
		}
		rec.DepthRenderbuffer = t.device.CreateRenderbuffer()
		t.device.RenderbufferStorage(rec.DepthRenderbuffer, format, rt.Width, rt.Height, rt.Samples)
		t.device.FramebufferRenderbuffer(depthAttachment, rec.DepthRenderbuffer)
		if rt.DepthTexture != nil {
			t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.ResolveFramebuffer)
			trec := t.textures.allocate(rt.DepthTexture, scratchUnit)
			t.device.FramebufferTexture2D(depthAttachment, gpu.Texture2D, trec.Texture, 0)
			t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.Framebuffer)
		}
	}

	if status := t.device.CheckFramebufferStatus(); status != gpu.FramebufferComplete {
		t.log.Error("render target incomplete", zap.Uint64("target", rt.ID), zap.Stringer("status", status))
		t.Remove(rt)
		return fmt.Errorf("render target %d: %w: %s", rt.ID, core.ErrFramebufferIncomplete, status)
	}
	return nil
}

func (t *Targets) Get(rt *scene.RenderTarget) (*TargetRecord, bool) {
	rec, ok := t.records[rt.ID]
	return rec, ok
}

// Resolve blits multisampled color (and depth, when sampled) into the target
// textures and regenerates mipmaps of textures that want them.
func (t *Targets) Resolve(rt *scene.RenderTarget) {
	rec := t.records[rt.ID]
	if rec == nil {
		return
	}
	if rt.Samples > 0 {
		mask := gpu.ColorBit
		if rt.DepthTexture != nil {
			mask |= gpu.DepthBit
		}
		full := core.Rect{Width: rt.Width, Height: rt.Height}
		t.binder.BindFramebuffer(gpu.ReadFramebuffer, rec.Framebuffer)
		t.binder.BindFramebuffer(gpu.DrawFramebuffer, rec.ResolveFramebuffer)
		t.device.BlitFramebuffer(full, full, mask, false)
		t.binder.BindFramebuffer(gpu.FramebufferBoth, rec.Framebuffer)
	}
	for _, tex := range rt.Textures {
		if !tex.GenerateMipmaps || !tex.MinFilter.UsesMipmaps() {
			continue
		}
		if trec := t.textures.records[tex.ID]; trec != nil {
			t.binder.BindTexture(trec.Target, trec.Texture, scratchUnit)
			t.device.GenerateMipmap(trec.Target)
		}
	}
}

// Remove deletes the framebuffers, renderbuffers and attachment textures of rt.
func (t *Targets) Remove(rt *scene.RenderTarget) {
	rec := t.records[rt.ID]
	if rec == nil {
		return
	}
	t.device.DeleteFramebuffer(rec.Framebuffer)
	t.binder.ForgetFramebuffer(rec.Framebuffer)
	if rec.ResolveFramebuffer != 0 {
		t.device.DeleteFramebuffer(rec.ResolveFramebuffer)
		t.binder.ForgetFramebuffer(rec.ResolveFramebuffer)
	}
	for _, rb := range rec.ColorRenderbuffers {
		t.device.DeleteRenderbuffer(rb)
	}
	if rec.DepthRenderbuffer != 0 {
		t.device.DeleteRenderbuffer(rec.DepthRenderbuffer)
	}
	for _, tex := range rt.Textures {
		t.textures.Remove(tex)
	}
	if rt.DepthTexture != nil {
		t.textures.Remove(rt.DepthTexture)
	}
	delete(t.records, rt.ID)
	t.info.Targets--
	t.log.Debug("render target freed", zap.Uint64("target", rt.ID))
}
