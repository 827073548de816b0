package resources

import (
	"fmt"

	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// TextureRecord is the GPU side of one scene.Texture.
type TextureRecord struct {
	Texture gpu.Texture
	Target  gpu.TextureTarget
	Version uint64
	Size    int
}

// Textures maps texture ids to GPU textures.
type Textures struct {
	device  gpu.Device
	binder  Binder
	targets *Targets
	records map[uint64]*TextureRecord
	info    *Info
	log     *zap.Logger
}

func textureTarget(tex *scene.Texture) gpu.TextureTarget {
	if tex.IsCube {
		return gpu.TextureCubeMap
	}
	return gpu.Texture2D
}

func samplerParams(tex *scene.Texture) gpu.SamplerParams {
	return gpu.SamplerParams{
		WrapS:      tex.WrapS,
		WrapT:      tex.WrapT,
		MinFilter:  tex.MinFilter,
		MagFilter:  tex.MagFilter,
		Anisotropy: tex.Anisotropy,
		CompareRef: tex.Format.IsDepth(),
	}
}

// Update binds tex to unit, allocating and uploading it first when needed.
// Textures owned by a render target are never uploaded; their target is set
// up instead.
func (t *Textures) Update(tex *scene.Texture, unit int) error {
	if rt := tex.RenderTarget(); rt != nil {
		if err := t.targets.Setup(rt); err != nil {
			return err
		}
		rec := t.records[tex.ID]
		if rec == nil {
			return fmt.Errorf("texture %d is not attached to render target %d", tex.ID, rt.ID)
		}
		t.binder.BindTexture(rec.Target, rec.Texture, unit)
		return nil
	}

	rec := t.records[tex.ID]
	if rec != nil && rec.Version == tex.Version() {
		t.binder.BindTexture(rec.Target, rec.Texture, unit)
		return nil
	}
	if rec != nil && rec.Size != tex.ByteSize() {
		return &core.ResourceSizeMismatchError{
			Resource:  "texture",
			ID:        tex.ID,
			Allocated: rec.Size,
			Requested: tex.ByteSize(),
		}
	}
	if rec == nil {
		rec = t.create(tex)
	}

	t.binder.BindTexture(rec.Target, rec.Texture, unit)
	if tex.IsCube {
		for i, face := range tex.Faces {
			t.device.TexImage2D(gpu.CubeFace(i), 0, tex.Format, tex.Width, tex.Height, face)
		}
	} else {
		t.device.TexImage2D(gpu.Texture2D, 0, tex.Format, tex.Width, tex.Height, tex.Pixels)
	}
	t.device.TexParameters(rec.Target, samplerParams(tex))
	if tex.GenerateMipmaps && tex.MinFilter.UsesMipmaps() {
		t.device.GenerateMipmap(rec.Target)
	}
	rec.Version = tex.Version()
	return nil
}

func (t *Textures) create(tex *scene.Texture) *TextureRecord {
	rec := &TextureRecord{
		Texture: t.device.CreateTexture(),
		Target:  textureTarget(tex),
		Size:    tex.ByteSize(),
	}
	t.records[tex.ID] = rec
	t.info.Textures++
	t.info.TextureBytes += rec.Size
	if tex.RenderTarget() == nil {
		tex.OnDispose(t, func() { t.Remove(tex) })
	}
	return rec
}

// allocate creates storage for a render target attachment without pixel data.
func (t *Textures) allocate(tex *scene.Texture, unit int) *TextureRecord {
	rec := t.create(tex)
	rec.Version = tex.Version()
	t.binder.BindTexture(rec.Target, rec.Texture, unit)
	if tex.IsCube {
		for i := range 6 {
			t.device.TexImage2D(gpu.CubeFace(i), 0, tex.Format, tex.Width, tex.Height, nil)
		}
	} else {
		t.device.TexImage2D(gpu.Texture2D, 0, tex.Format, tex.Width, tex.Height, nil)
	}
	t.device.TexParameters(rec.Target, samplerParams(tex))
	return rec
}

func (t *Textures) Get(tex *scene.Texture) (*TextureRecord, bool) {
	rec, ok := t.records[tex.ID]
	return rec, ok
}

// Remove deletes the GPU texture of tex.
func (t *Textures) Remove(tex *scene.Texture) {
	rec := t.records[tex.ID]
	if rec == nil {
		return
	}
	t.device.DeleteTexture(rec.Texture)
	t.binder.ForgetTexture(rec.Texture)
	delete(t.records, tex.ID)
	t.info.Textures--
	t.info.TextureBytes -= rec.Size
	t.log.Debug("texture freed", zap.Uint64("texture", tex.ID), zap.String("name", tex.Name))
}
