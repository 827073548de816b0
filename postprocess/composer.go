// Package postprocess chains full-screen passes over the rendered scene.
//
// A Composer owns two ping-pong render targets. Each enabled pass reads the
// previous output and draws into the other target; the last pass draws to the
// default surface, where the renderer applies tone mapping and output encoding.
package postprocess

import (
	"fmt"

	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// Renderer is the part of renderer.Renderer the passes draw through.
type Renderer interface {
	Render(sc *scene.Scene, camera *scene.Camera) error
	RenderFullscreen(m *scene.Material) error
	SetRenderTarget(target *scene.RenderTarget, face, mip int) error
	RenderTarget() *scene.RenderTarget
	DrawingBufferSize() (int, int)
	Clear(color, depth, stencil bool)
}

// Frame is what one pass sees. Output nil means the default surface.
type Frame struct {
	Renderer Renderer
	Composer *Composer
	Input    *scene.RenderTarget
	Output   *scene.RenderTarget
}

// Pass is one step of the chain.
type Pass interface {
	Render(f Frame) error
	// NeedsSwap reports whether the pass wrote Output, making it the input of
	// the next pass.
	NeedsSwap() bool
	SetSize(width, height int)
	Dispose()
}

type Options struct {
	// Format of the ping-pong targets. Half float keeps HDR values until the
	// final pass.
	Format  gpu.TextureFormat
	Samples int
	Logger  *zap.Logger
}

func DefaultOptions() Options {
	return Options{Format: gpu.RGBA16F}
}

type entry struct {
	pass    Pass
	enabled bool
}

// Composer runs passes in order.
type Composer struct {
	renderer Renderer
	log      *zap.Logger
	opts     Options

	passes  []entry
	read    *scene.RenderTarget
	write   *scene.RenderTarget
	targets map[string]*scene.RenderTarget

	width, height int

	// RenderToScreen sends the last enabled pass to the default surface.
	RenderToScreen bool
}

// NewComposer creates a composer sized to the renderer's drawing buffer.
func NewComposer(r Renderer, opts Options) *Composer {
	log := opts.Logger
	if log == nil {
		log = core.Logger()
	}
	c := &Composer{
		renderer:       r,
		log:            log.Named("postprocess"),
		opts:           opts,
		targets:        make(map[string]*scene.RenderTarget),
		RenderToScreen: true,
	}
	c.width, c.height = r.DrawingBufferSize()
	c.read = c.newTarget(c.width, c.height)
	c.write = c.newTarget(c.width, c.height)
	return c
}

func (c *Composer) newTarget(w, h int) *scene.RenderTarget {
	rt := scene.NewRenderTarget(max(w, 1), max(h, 1), scene.RenderTargetOptions{
		Format:      c.opts.Format,
		MinFilter:   gpu.Linear,
		MagFilter:   gpu.Linear,
		DepthBuffer: true,
		Samples:     c.opts.Samples,
		Count:       1,
	})
	return rt
}

// AddPass appends p, enabled.
func (c *Composer) AddPass(p Pass) {
	p.SetSize(c.width, c.height)
	c.passes = append(c.passes, entry{pass: p, enabled: true})
}

// InsertPass puts p at index i.
func (c *Composer) InsertPass(p Pass, i int) {
	p.SetSize(c.width, c.height)
	i = min(max(i, 0), len(c.passes))
	c.passes = append(c.passes, entry{})
	copy(c.passes[i+1:], c.passes[i:])
	c.passes[i] = entry{pass: p, enabled: true}
}

func (c *Composer) RemovePass(p Pass) {
	for i, e := range c.passes {
		if e.pass == p {
			c.passes = append(c.passes[:i], c.passes[i+1:]...)
			return
		}
	}
}

// SetEnabled switches p on or off without removing it.
func (c *Composer) SetEnabled(p Pass, on bool) {
	for i := range c.passes {
		if c.passes[i].pass == p {
			c.passes[i].enabled = on
		}
	}
}

// Passes lists the passes in order.
func (c *Composer) Passes() []Pass {
	out := make([]Pass, len(c.passes))
	for i, e := range c.passes {
		out[i] = e.pass
	}
	return out
}

// SetTarget registers rt under name for ShaderPass bindings. The composer
// does not take ownership.
func (c *Composer) SetTarget(name string, rt *scene.RenderTarget) {
	if rt == nil {
		delete(c.targets, name)
		return
	}
	c.targets[name] = rt
}

// Target returns the target registered under name.
func (c *Composer) Target(name string) (*scene.RenderTarget, bool) {
	rt, ok := c.targets[name]
	return rt, ok
}

// ReadTarget holds the output of the last pass that swapped. A pass drawn to
// the screen does not swap.
func (c *Composer) ReadTarget() *scene.RenderTarget { return c.read }

// Size returns the size of the ping-pong targets.
func (c *Composer) Size() (int, int) { return c.width, c.height }

// SetSize resizes the ping-pong targets and every pass.
func (c *Composer) SetSize(width, height int) {
	c.width, c.height = width, height
	c.read.SetSize(max(width, 1), max(height, 1))
	c.write.SetSize(max(width, 1), max(height, 1))
	for _, e := range c.passes {
		e.pass.SetSize(width, height)
	}
}

// Render runs every enabled pass and restores the renderer's target.
func (c *Composer) Render() error {
	if w, h := c.renderer.DrawingBufferSize(); w != c.width || h != c.height {
		c.SetSize(w, h)
	}
	last := -1
	for i, e := range c.passes {
		if e.enabled {
			last = i
		}
	}

	prev := c.renderer.RenderTarget()
	for i, e := range c.passes {
		if !e.enabled {
			continue
		}
		out := c.write
		if c.RenderToScreen && i == last {
			out = nil
		}
		f := Frame{Renderer: c.renderer, Composer: c, Input: c.read, Output: out}
		if err := e.pass.Render(f); err != nil {
			return fmt.Errorf("post pass %d (%T): %w", i, e.pass, err)
		}
		if out != nil && e.pass.NeedsSwap() {
			c.read, c.write = c.write, c.read
		}
	}
	return c.renderer.SetRenderTarget(prev, 0, 0)
}

// Dispose releases the ping-pong targets and every pass.
func (c *Composer) Dispose() {
	for _, e := range c.passes {
		e.pass.Dispose()
	}
	c.passes = nil
	c.read.Dispose()
	c.write.Dispose()
	c.log.Debug("composer disposed")
}

// drawTo runs m over all of target.
func drawTo(r Renderer, target *scene.RenderTarget, m *scene.Material) error {
	if err := r.SetRenderTarget(target, 0, 0); err != nil {
		return err
	}
	return r.RenderFullscreen(m)
}
