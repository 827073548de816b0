package renderer

import (
	"go.uber.org/zap"

	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/scene"
)

// objectFeatures is the part of a drawable that changes program parameters.
type objectFeatures struct {
	geometry      uint64
	bones         int
	instances     bool
	instanceColor bool
	receiveShadow bool
}

func featuresOf(obj *scene.Node) objectFeatures {
	f := objectFeatures{receiveShadow: obj.ReceiveShadow}
	if d := obj.Drawable; d != nil {
		if d.Geometry != nil {
			f.geometry = d.Geometry.ID
		}
		if d.Skeleton != nil {
			f.bones = len(d.Skeleton.Bones)
		}
		f.instances = d.InstanceCount > 0 && d.InstanceMatrix != nil
		f.instanceColor = d.InstanceColor != nil
	}
	return f
}

// signature captures everything that can move a material to another program.
// While it is unchanged the current program is reused without deriving
// parameters again.
type signature struct {
	version uint64
	lights  lights.Hash
	ctx     programs.Context
	object  objectFeatures
}

// materialState is the renderer's per-material bookkeeping.
type materialState struct {
	version  uint64
	programs map[string]*programs.Program
	sig      signature
	current  *programs.Program
}

func (ms *materialState) release(cache *programs.Cache) {
	for key, p := range ms.programs {
		cache.Release(p)
		delete(ms.programs, key)
	}
	ms.current = nil
}

// programFor returns the program drawing obj with m in the current pass,
// acquiring a new one only when the material, light setup, pass context or
// object features changed since the last draw.
func (r *Renderer) programFor(m *scene.Material, obj *scene.Node) (*programs.Program, error) {
	ms := r.materials[m.ID]
	if ms == nil {
		ms = &materialState{programs: make(map[string]*programs.Program)}
		r.materials[m.ID] = ms
		id := m.ID
		m.OnDispose(r, func() { r.releaseMaterial(id) })
	}
	if ms.version != m.Version() {
		ms.release(r.programs)
		ms.version = m.Version()
	}

	sig := signature{version: m.Version(), ctx: r.ctx, object: featuresOf(obj)}
	if m.Kind.Lit() {
		sig.lights = r.lights.Hash
	}
	if ms.current != nil && sig == ms.sig {
		return ms.current, nil
	}

	params := r.programs.Parameters(m, r.lights.Hash, r.ctx, obj)
	key := r.programs.Key(params)
	if p, ok := ms.programs[key]; ok {
		ms.current, ms.sig = p, sig
		return p, nil
	}
	p, err := r.programs.Acquire(params, key)
	if p != nil {
		ms.programs[key] = p
		ms.current, ms.sig = p, sig
	}
	return p, err
}

func (r *Renderer) releaseMaterial(id uint64) {
	ms := r.materials[id]
	if ms == nil {
		return
	}
	ms.release(r.programs)
	delete(r.materials, id)
	r.log.Debug("material disposed", zap.Uint64("material", id))
}
