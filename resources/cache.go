// Package resources owns the GPU objects backing scene data: vertex and index
// buffers, textures and render targets. Objects are created lazily on first
// use, re-uploaded when their version advances and freed only when the scene
// object is disposed.
package resources

import (
	"go.uber.org/zap"

	"frame-renderer/gpu"
)

// Binder binds textures and framebuffers on behalf of the caches so that a
// state tracker sitting in front of the device stays in sync. The caches call
// the Forget methods right after deleting an object.
type Binder interface {
	BindTexture(target gpu.TextureTarget, t gpu.Texture, unit int)
	BindFramebuffer(target gpu.FramebufferTarget, fb gpu.Framebuffer) bool
	ForgetTexture(t gpu.Texture)
	ForgetFramebuffer(fb gpu.Framebuffer)
}

type deviceBinder struct{ device gpu.Device }

func (b deviceBinder) BindTexture(target gpu.TextureTarget, t gpu.Texture, unit int) {
	b.device.ActiveTexture(unit)
	b.device.BindTexture(target, t)
}

func (b deviceBinder) BindFramebuffer(target gpu.FramebufferTarget, fb gpu.Framebuffer) bool {
	b.device.BindFramebuffer(target, fb)
	return true
}

func (deviceBinder) ForgetTexture(gpu.Texture)         {}
func (deviceBinder) ForgetFramebuffer(gpu.Framebuffer) {}

// Info counts live GPU objects.
type Info struct {
	Geometries   int
	Textures     int
	Targets      int
	Buffers      int
	BufferBytes  int
	TextureBytes int
}

// Cache groups the per-kind caches that share a device.
type Cache struct {
	Attributes *Attributes
	Geometries *Geometries
	Textures   *Textures
	Targets    *Targets

	info   Info
	log    *zap.Logger
	binder *binderRef
}

// New creates the caches. Binding goes straight to the device until SetBinder
// installs a tracker.
func New(device gpu.Device, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{log: log.Named("resources")}
	binder := &binderRef{Binder: deviceBinder{device}}

	c.Attributes = &Attributes{device: device, records: make(map[uint64]*Record), info: &c.info, log: c.log}
	c.Geometries = &Geometries{attributes: c.Attributes, records: make(map[uint64]*geometryRecord), info: &c.info, log: c.log}
	c.Textures = &Textures{device: device, binder: binder, records: make(map[uint64]*TextureRecord), info: &c.info, log: c.log}
	c.Targets = &Targets{device: device, binder: binder, textures: c.Textures, records: make(map[uint64]*TargetRecord), info: &c.info, log: c.log}
	c.Textures.targets = c.Targets
	c.binder = binder
	return c
}

type binderRef struct{ Binder }

// SetBinder routes texture and framebuffer binds through b.
func (c *Cache) SetBinder(b Binder) {
	c.binder.Binder = b
}

func (c *Cache) Info() Info { return c.info }

// Reset forgets every record without deleting anything on the device. It is
// meant for context loss, when the device objects are already gone.
func (c *Cache) Reset() {
	clear(c.Attributes.records)
	clear(c.Geometries.records)
	clear(c.Textures.records)
	clear(c.Targets.records)
	c.info = Info{}
}

// Dispose deletes every device object the caches hold and forgets them.
func (c *Cache) Dispose() {
	d := c.Attributes.device
	for _, rec := range c.Targets.records {
		d.DeleteFramebuffer(rec.Framebuffer)
		c.binder.ForgetFramebuffer(rec.Framebuffer)
		if rec.ResolveFramebuffer != 0 {
			d.DeleteFramebuffer(rec.ResolveFramebuffer)
			c.binder.ForgetFramebuffer(rec.ResolveFramebuffer)
		}
		for _, rb := range rec.ColorRenderbuffers {
			d.DeleteRenderbuffer(rb)
		}
		if rec.DepthRenderbuffer != 0 {
			d.DeleteRenderbuffer(rec.DepthRenderbuffer)
		}
	}
	for _, rec := range c.Textures.records {
		d.DeleteTexture(rec.Texture)
		c.binder.ForgetTexture(rec.Texture)
	}
	for _, rec := range c.Attributes.records {
		d.DeleteBuffer(rec.Buffer)
	}
	c.log.Debug("resources disposed",
		zap.Int("buffers", c.info.Buffers), zap.Int("textures", c.info.Textures), zap.Int("targets", c.info.Targets))
	c.Reset()
}
