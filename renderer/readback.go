package renderer

import (
	"fmt"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// Readback is a pending asynchronous pixel read. The GPU copies into a pack
// buffer guarded by a fence; Poll maps the result once the fence signals.
type Readback struct {
	device gpu.Device
	buffer gpu.Buffer
	fence  gpu.Fence
	size   int

	data []byte
	done bool
	err  error
}

// Poll returns the pixels once they are available. ok is false while the
// copy is still in flight.
func (rb *Readback) Poll() (data []byte, ok bool, err error) {
	switch {
	case rb.err != nil:
		return nil, false, rb.err
	case rb.done:
		return rb.data, true, nil
	case rb.device.IsContextLost():
		rb.fail(core.ErrContextLost)
		return nil, false, rb.err
	case !rb.device.FenceSignaled(rb.fence):
		return nil, false, nil
	}
	rb.data = make([]byte, rb.size)
	rb.device.BindBuffer(gpu.PixelPackBuffer, rb.buffer)
	rb.device.GetBufferSubData(gpu.PixelPackBuffer, 0, rb.data)
	rb.device.BindBuffer(gpu.PixelPackBuffer, gpu.NoBuffer)
	rb.release()
	rb.done = true
	return rb.data, true, nil
}

func (rb *Readback) fail(err error) {
	if rb.done || rb.err != nil {
		return
	}
	rb.err = err
	if !rb.device.IsContextLost() {
		rb.release()
	}
}

func (rb *Readback) release() {
	rb.device.DeleteFence(rb.fence)
	rb.device.DeleteBuffer(rb.buffer)
}

// ReadPixelsAsync starts copying rect of target (nil for the default surface)
// into a pack buffer. Pending reads are polled at the end of every frame;
// the caller polls the returned handle for the data.
func (r *Renderer) ReadPixelsAsync(target *scene.RenderTarget, rect core.Rect) *Readback {
	rb := &Readback{device: r.device}
	if r.checkLost() {
		rb.err = core.ErrContextLost
		return rb
	}

	format := gpu.RGBA8
	if target != nil {
		format = target.Texture().Format
	}
	if rect.Empty() || format.IsDepth() {
		rb.err = fmt.Errorf("read pixels: unsupported rect %v or format %v", rect, format)
		return rb
	}

	prev, face, mip := r.target, r.targetFace, r.targetMip
	if err := r.SetRenderTarget(target, 0, 0); err != nil {
		rb.err = err
		return rb
	}
	if target != nil && target.Samples > 0 {
		r.resources.Targets.Resolve(target)
		rec, _ := r.resources.Targets.Get(target)
		r.state.BindFramebuffer(gpu.ReadFramebuffer, rec.ResolveFramebuffer)
	}

	rb.size = rect.Width * rect.Height * format.BytesPerPixel()
	rb.buffer = r.device.CreateBuffer()
	r.device.BindBuffer(gpu.PixelPackBuffer, rb.buffer)
	r.device.BufferData(gpu.PixelPackBuffer, make([]byte, rb.size), gpu.StreamRead)
	r.device.ReadPixels(rect, format, rb.buffer)
	r.device.BindBuffer(gpu.PixelPackBuffer, gpu.NoBuffer)
	rb.fence = r.device.FenceSync()
	r.readbacks = append(r.readbacks, rb)

	if err := r.SetRenderTarget(prev, face, mip); err != nil {
		rb.fail(err)
	}
	return rb
}

// pollReadbacks completes signaled reads and drops finished ones.
func (r *Renderer) pollReadbacks() {
	pending := r.readbacks[:0]
	for _, rb := range r.readbacks {
		if _, ok, err := rb.Poll(); !ok && err == nil {
			pending = append(pending, rb)
		}
	}
	clear(r.readbacks[len(pending):])
	r.readbacks = pending
}

// PendingReadbacks is the number of reads still in flight.
func (r *Renderer) PendingReadbacks() int { return len(r.readbacks) }
