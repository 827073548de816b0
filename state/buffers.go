package state

import (
	"frame-renderer/core"
	"frame-renderer/gpu"
)

// ColorBuffer tracks the color write mask and clear color. A locked buffer
// ignores mask changes until unlocked.
type ColorBuffer struct {
	t      *Tracker
	locked bool
	mask   cached[bool]
	clear  cached[core.Color]
}

func (b *ColorBuffer) SetMask(write bool) {
	if !b.locked && b.mask.change(write) {
		b.t.device.ColorMask(write, write, write, write)
	}
}

func (b *ColorBuffer) SetLocked(lock bool) { b.locked = lock }

func (b *ColorBuffer) SetClear(c core.Color) {
	if b.clear.change(c) {
		b.t.device.ClearColor(c)
	}
}

type DepthBuffer struct {
	t      *Tracker
	locked bool
	mask   cached[bool]
	fn     cached[gpu.CompareFunc]
	clear  cached[float64]
}

func (b *DepthBuffer) SetTest(on bool) {
	b.t.SetEnabled(gpu.DepthTest, on)
}

func (b *DepthBuffer) SetMask(write bool) {
	if !b.locked && b.mask.change(write) {
		b.t.device.DepthMask(write)
	}
}

func (b *DepthBuffer) SetFunc(f gpu.CompareFunc) {
	if b.fn.change(f) {
		b.t.device.DepthFunc(f)
	}
}

func (b *DepthBuffer) SetLocked(lock bool) { b.locked = lock }

func (b *DepthBuffer) SetClear(d float64) {
	if b.clear.change(d) {
		b.t.device.ClearDepth(d)
	}
}

type stencilFunc struct {
	fn   gpu.CompareFunc
	ref  int32
	mask uint32
}

type stencilOps struct {
	fail, zfail, zpass gpu.StencilOp
}

type StencilBuffer struct {
	t      *Tracker
	locked bool
	mask   cached[uint32]
	fn     cached[stencilFunc]
	ops    cached[stencilOps]
	clear  cached[int32]
}

func (b *StencilBuffer) SetTest(on bool) {
	if !b.locked {
		b.t.SetEnabled(gpu.StencilTest, on)
	}
}

func (b *StencilBuffer) SetMask(mask uint32) {
	if !b.locked && b.mask.change(mask) {
		b.t.device.StencilMask(mask)
	}
}

func (b *StencilBuffer) SetFunc(f gpu.CompareFunc, ref int32, mask uint32) {
	if b.fn.change(stencilFunc{f, ref, mask}) {
		b.t.device.StencilFunc(f, ref, mask)
	}
}

func (b *StencilBuffer) SetOp(fail, zfail, zpass gpu.StencilOp) {
	if b.ops.change(stencilOps{fail, zfail, zpass}) {
		b.t.device.StencilOp(fail, zfail, zpass)
	}
}

func (b *StencilBuffer) SetLocked(lock bool) { b.locked = lock }

func (b *StencilBuffer) SetClear(s int32) {
	if b.clear.change(s) {
		b.t.device.ClearStencil(s)
	}
}
