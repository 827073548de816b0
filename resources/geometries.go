package resources

import (
	"go.uber.org/zap"

	"frame-renderer/gpu"
	"frame-renderer/scene"
)

type geometryRecord struct {
	// attrs maps each acquired attribute to the last pass that saw it.
	attrs map[*scene.BufferAttribute]uint64
	pass  uint64
}

// Geometries tracks which attributes each live geometry holds a reference on.
type Geometries struct {
	attributes *Attributes
	records    map[uint64]*geometryRecord
	info       *Info
	log        *zap.Logger
}

// Update uploads every attribute, morph attribute and the index of geo.
// Attributes seen for the first time are acquired once for this geometry, and
// attributes the geometry no longer holds are released.
func (g *Geometries) Update(geo *scene.Geometry) error {
	rec := g.records[geo.ID]
	if rec == nil {
		rec = &geometryRecord{attrs: make(map[*scene.BufferAttribute]uint64)}
		g.records[geo.ID] = rec
		g.info.Geometries++
		geo.OnDispose(g, func() { g.Remove(geo) })
	}
	rec.pass++

	update := func(attr *scene.BufferAttribute, target gpu.BufferTarget) error {
		if err := g.attributes.Update(attr, target); err != nil {
			return err
		}
		if _, ok := rec.attrs[attr]; !ok {
			g.attributes.Acquire(attr)
		}
		rec.attrs[attr] = rec.pass
		return nil
	}

	for _, name := range geo.AttributeNames() {
		if err := update(geo.Attribute(name), gpu.ArrayBuffer); err != nil {
			return err
		}
	}
	for _, targets := range geo.MorphAttributes {
		for _, attr := range targets {
			if err := update(attr, gpu.ArrayBuffer); err != nil {
				return err
			}
		}
	}
	if geo.Index != nil {
		if err := update(geo.Index, gpu.ElementArrayBuffer); err != nil {
			return err
		}
	}
	for attr, pass := range rec.attrs {
		if pass != rec.pass {
			delete(rec.attrs, attr)
			g.attributes.Release(attr)
		}
	}
	return nil
}

// Remove releases the geometry's references. Buffers shared with other live
// geometries stay allocated.
func (g *Geometries) Remove(geo *scene.Geometry) {
	rec := g.records[geo.ID]
	if rec == nil {
		return
	}
	for attr := range rec.attrs {
		g.attributes.Release(attr)
	}
	delete(g.records, geo.ID)
	g.info.Geometries--
	geo.OffDispose(g)
	g.log.Debug("geometry released", zap.Uint64("geometry", geo.ID), zap.String("name", geo.Name))
}

// Live reports whether geo currently holds GPU buffers.
func (g *Geometries) Live(geo *scene.Geometry) bool {
	_, ok := g.records[geo.ID]
	return ok
}
