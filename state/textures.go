package state

import (
	"go.uber.org/zap"

	"frame-renderer/gpu"
)

// ActiveTexture selects the texture unit subsequent binds apply to.
func (t *Tracker) ActiveTexture(unit int) {
	if t.activeUnit.change(unit) {
		t.device.ActiveTexture(unit)
	}
}

// BindTexture binds tex to unit. A negative unit means the active unit.
func (t *Tracker) BindTexture(target gpu.TextureTarget, tex gpu.Texture, unit int) {
	if unit < 0 {
		unit = t.activeUnit.v
	}
	want := boundTexture{target: target, tex: tex}
	if cur, ok := t.textures[unit]; ok && cur == want {
		return
	}
	t.ActiveTexture(unit)
	t.device.BindTexture(target, tex)
	t.textures[unit] = want
}

// UnbindTexture clears the binding on the active unit.
func (t *Tracker) UnbindTexture() {
	unit := t.activeUnit.v
	if cur, ok := t.textures[unit]; ok && cur.tex != gpu.NoTexture {
		t.device.BindTexture(cur.target, gpu.NoTexture)
		t.textures[unit] = boundTexture{target: cur.target}
	}
}

// ForgetTexture drops every binding of tex. The device unbinds a deleted
// texture and may hand its name out again.
func (t *Tracker) ForgetTexture(tex gpu.Texture) {
	for unit, cur := range t.textures {
		if cur.tex == tex {
			delete(t.textures, unit)
		}
	}
}

// AllocateTextureUnit hands out the next free unit for the current draw.
func (t *Tracker) AllocateTextureUnit() int {
	unit := t.nextUnit
	if unit >= t.maxUnits {
		t.log.Warn("texture units exhausted", zap.Int("unit", unit), zap.Int("max", t.maxUnits))
	}
	t.nextUnit++
	return unit
}

// ResetTextureUnits starts unit allocation over for the next draw.
func (t *Tracker) ResetTextureUnits() {
	t.nextUnit = 0
}
