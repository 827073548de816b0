package scene

import "github.com/go-gl/mathgl/mgl32"

// ComputeTangents generates a vec4 "tangent" attribute for tangent-space
// normal mapping. The w component carries the bitangent handedness. The
// geometry needs position, normal and uv attributes; triangles with a
// degenerate UV area are skipped.
func ComputeTangents(g *Geometry) bool {
	pos := g.Attribute("position")
	nrm := g.Attribute("normal")
	uv := g.Attribute("uv")
	if pos == nil || nrm == nil || uv == nil {
		return false
	}
	n := pos.Count()
	tan := make([]mgl32.Vec3, n)
	bit := make([]mgl32.Vec3, n)

	uvAt := func(i uint32) mgl32.Vec2 {
		return mgl32.Vec2{uv.Float32(int(i), 0), uv.Float32(int(i), 1)}
	}

	accum := func(i0, i1, i2 uint32) {
		p0, p1, p2 := pos.Vec3(int(i0)), pos.Vec3(int(i1)), pos.Vec3(int(i2))
		w0, w1, w2 := uvAt(i0), uvAt(i1), uvAt(i2)

		e1 := p1.Sub(p0)
		e2 := p2.Sub(p0)
		du1, dv1 := w1[0]-w0[0], w1[1]-w0[1]
		du2, dv2 := w2[0]-w0[0], w2[1]-w0[1]

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			return
		}
		r := 1 / denom

		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))
		for _, i := range [3]uint32{i0, i1, i2} {
			tan[i] = tan[i].Add(t)
			bit[i] = bit[i].Add(b)
		}
	}

	if g.Index != nil {
		for i := 0; i+2 < g.Index.Count(); i += 3 {
			accum(g.Index.Index(i), g.Index.Index(i+1), g.Index.Index(i+2))
		}
	} else {
		for i := 0; i+2 < n; i += 3 {
			accum(uint32(i), uint32(i+1), uint32(i+2))
		}
	}

	// Gram-Schmidt orthogonalize each frame against the normal.
	out := make([]float32, 4*n)
	for i := 0; i < n; i++ {
		nv := nrm.Vec3(i)
		t := tan[i].Sub(nv.Mul(nv.Dot(tan[i])))
		if t.LenSqr() < 1e-8 {
			if abs32(nv[0]) < 0.9 {
				t = mgl32.Vec3{1, 0, 0}.Sub(nv.Mul(nv[0]))
			} else {
				t = mgl32.Vec3{0, 1, 0}.Sub(nv.Mul(nv[1]))
			}
		}
		t = t.Normalize()
		w := float32(1)
		if nv.Cross(t).Dot(bit[i]) < 0 {
			w = -1
		}
		out[4*i], out[4*i+1], out[4*i+2], out[4*i+3] = t[0], t[1], t[2], w
	}
	g.SetAttribute("tangent", NewFloat32Attribute(out, 4))
	return true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
