package lights

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// DepthPass asks the renderer to draw casters into a shadow map region.
type DepthPass struct {
	Target   *scene.RenderTarget
	Viewport core.Rect
	// Clear is set on the first pass into a target each frame.
	Clear    bool
	Camera   *scene.Camera
	Material *scene.Material
	Casters  []*scene.Node
}

// DepthDrawer is implemented by the renderer. The mapper owns no drawing code.
type DepthDrawer interface {
	DrawDepth(pass DepthPass)
	DrawFullscreen(target *scene.RenderTarget, m *scene.Material)
}

// Cube face look directions and up vectors, laid out 4:2 in the point atlas.
var (
	cubeDirections = [6]mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1}, {0, 1, 0}, {0, -1, 0}}
	cubeUps        = [6]mgl32.Vec3{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, -1}}
	cubeViewports  = [6][2]int{{2, 1}, {0, 1}, {3, 1}, {1, 1}, {3, 0}, {1, 0}}
)

// shadowBias maps clip space [-1,1] to texture space [0,1].
var shadowBias = mgl32.Translate3D(0.5, 0.5, 0.5).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))

type shadowMap struct {
	target   *scene.RenderTarget
	blurTemp *scene.RenderTarget
	camera   *scene.Camera
	faces    [6]*scene.Camera
	distance *scene.Material
	typ      ShadowType
	drawn    bool
	seen     bool
}

func (m *shadowMap) dispose() {
	m.target.Dispose()
	if m.blurTemp != nil {
		m.blurTemp.Dispose()
	}
	if m.distance != nil {
		m.distance.Dispose()
	}
}

// ShadowMapper renders one shadow map per shadow-casting light and fills the
// light state's shadow records.
type ShadowMapper struct {
	Type       ShadowType
	AutoUpdate bool
	// NeedsUpdate forces one render when AutoUpdate is off.
	NeedsUpdate bool

	maps     map[*scene.Node]*shadowMap
	depth    *scene.Material
	vsmDepth *scene.Material
	blurH    *scene.Material
	blurV    *scene.Material
	log      *zap.Logger
}

func NewShadowMapper(typ ShadowType, log *zap.Logger) *ShadowMapper {
	if log == nil {
		log = zap.NewNop()
	}
	depth := scene.NewMaterial(scene.DepthMaterial)
	depth.DepthPacking = scene.BasicDepthPacking

	vsmDepth := scene.NewMaterial(scene.DepthMaterial)
	vsmDepth.Defines["VSM_MOMENTS"] = "1"

	return &ShadowMapper{
		Type:       typ,
		AutoUpdate: true,
		maps:       make(map[*scene.Node]*shadowMap),
		depth:      depth,
		vsmDepth:   vsmDepth,
		blurH:      newBlurMaterial(mgl32.Vec2{1, 0}),
		blurV:      newBlurMaterial(mgl32.Vec2{0, 1}),
		log:        log.Named("shadow"),
	}
}

// Render updates every shadow map referenced by the state's shadow records.
// Maps of lights that no longer cast shadows are disposed.
func (m *ShadowMapper) Render(casters []*scene.Node, st *State, camera *scene.Camera, d DepthDrawer) {
	for _, sm := range m.maps {
		sm.seen = false
	}
	draw := m.AutoUpdate || m.NeedsUpdate

	for i := range st.DirectionalShadows {
		m.renderDirectional(&st.DirectionalShadows[i], casters, d, draw)
	}
	for i := range st.SpotShadows {
		m.renderSpot(&st.SpotShadows[i], casters, d, draw)
	}
	for i := range st.PointShadows {
		m.renderPoint(&st.PointShadows[i], casters, d, draw)
	}

	for n, sm := range m.maps {
		if !sm.seen {
			sm.dispose()
			delete(m.maps, n)
		}
	}
	m.NeedsUpdate = false
}

// Maps returns the number of live shadow maps.
func (m *ShadowMapper) Maps() int {
	return len(m.maps)
}

// Dispose releases every shadow map.
func (m *ShadowMapper) Dispose() {
	for n, sm := range m.maps {
		sm.dispose()
		delete(m.maps, n)
	}
}

func (m *ShadowMapper) typeFor(kind scene.LightKind) ShadowType {
	if kind == scene.PointLight && m.Type == VSMShadow {
		return PCFShadow
	}
	return m.Type
}

// acquire returns the light's map, rebuilding it when the size or technique changed.
func (m *ShadowMapper) acquire(sh *Shadow) *shadowMap {
	kind := sh.Light.Light.Kind
	typ := m.typeFor(kind)
	w, h := max(sh.MapSize[0], 1), max(sh.MapSize[1], 1)
	if kind == scene.PointLight {
		w, h = 4*w, 2*h
	}

	sm := m.maps[sh.Light]
	if sm != nil && (sm.typ != typ || sm.target.Width != w || sm.target.Height != h) {
		sm.dispose()
		sm = nil
	}
	if sm == nil {
		sm = &shadowMap{typ: typ, target: newShadowTarget(w, h, kind, typ)}
		if typ == VSMShadow {
			sm.blurTemp = newShadowTarget(w, h, kind, typ)
		}
		switch kind {
		case scene.DirectionalLight:
			sm.camera = scene.NewOrthographicCamera(-5, 5, 5, -5, sh.Near, sh.Far)
		case scene.SpotLight:
			sm.camera = scene.NewPerspectiveCamera(50, float32(w)/float32(h), sh.Near, sh.Far)
		case scene.PointLight:
			for i := range sm.faces {
				sm.faces[i] = scene.NewPerspectiveCamera(90, 1, sh.Near, sh.Far)
			}
			sm.distance = scene.NewMaterial(scene.DistanceMaterial)
			sm.distance.DepthPacking = scene.RGBADepthPacking
		}
		m.maps[sh.Light] = sm
		m.log.Debug("shadow map created",
			zap.String("light", sh.Light.Name), zap.Int("width", w), zap.Int("height", h), zap.Stringer("type", typ))
	}
	sm.seen = true
	return sm
}

func newShadowTarget(w, h int, kind scene.LightKind, typ ShadowType) *scene.RenderTarget {
	opts := scene.DefaultRenderTargetOptions()
	opts.MinFilter, opts.MagFilter = gpu.Nearest, gpu.Nearest
	switch {
	case typ == VSMShadow:
		opts.Format = gpu.RGBA16F
		opts.MinFilter, opts.MagFilter = gpu.Linear, gpu.Linear
	case kind == scene.PointLight:
		opts.Format = gpu.RGBA8
	default:
		opts.DepthTexture = true
		opts.DepthFormat = gpu.Depth32F
	}
	rt := scene.NewRenderTarget(w, h, opts)
	if rt.DepthTexture != nil && typ != BasicShadow {
		rt.DepthTexture.MinFilter, rt.DepthTexture.MagFilter = gpu.Linear, gpu.Linear
	}
	return rt
}

// shouldDraw reports whether the light's map is redrawn this frame and clears
// the light's one-shot flag.
func shouldDraw(sm *shadowMap, cfg *scene.LightShadow, draw bool) bool {
	if !sm.drawn {
		return true
	}
	if !draw || !(cfg.AutoUpdate || cfg.NeedsUpdate) {
		return false
	}
	cfg.NeedsUpdate = false
	return true
}

func placeCamera(cam *scene.Camera, view mgl32.Mat4) {
	cam.Node.MatrixAutoUpdate = false
	cam.Node.SetMatrix(view.Inv())
	cam.Node.UpdateWorldMatrix(false, false)
}

// lightView looks from eye toward target, picking an up vector that is not
// parallel to the view direction.
func lightView(eye, target mgl32.Vec3) mgl32.Mat4 {
	dir := target.Sub(eye).Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if abs(dir.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(eye, target, up)
}

// casterBounds returns the world-space box around every caster.
func casterBounds(casters []*scene.Node) scene.AABB {
	box := scene.EmptyAABB()
	for _, n := range casters {
		d := n.Drawable
		if d == nil || d.Geometry == nil {
			continue
		}
		s := d.InstanceBoundingSphere()
		if s.Empty() {
			continue
		}
		s = s.ApplyMatrix4(n.WorldMatrix())
		r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
		box = box.ExpandByPoint(s.Center.Sub(r)).ExpandByPoint(s.Center.Add(r))
	}
	return box
}

type orthoBounds struct {
	left, right, bottom, top, near, far float32
}

func (b orthoBounds) matrix() mgl32.Mat4 {
	return mgl32.Ortho(b.left, b.right, b.bottom, b.top, b.near, b.far)
}

func fitDirectional(light *scene.Node, casters []*scene.Node, near, far float32) (mgl32.Mat4, orthoBounds) {
	pos, target := light.WorldPosition(), light.Light.TargetPosition()
	if pos.Sub(target).Len() < 1e-6 {
		pos = target.Add(mgl32.Vec3{0, 1, 0})
	}
	view := lightView(pos, target)

	box := casterBounds(casters)
	if box.Empty() {
		return view, orthoBounds{-5, 5, -5, 5, near, far}
	}
	ls := box.ApplyMatrix4(view)
	const pad = 0.01
	// The view looks down -Z, so the nearest caster has the largest z.
	return view, orthoBounds{
		left:   ls.Min.X() - pad,
		right:  ls.Max.X() + pad,
		bottom: ls.Min.Y() - pad,
		top:    ls.Max.Y() + pad,
		near:   -ls.Max.Z() - pad,
		far:    -ls.Min.Z() + pad,
	}
}

// FitDirectional returns the view and orthographic projection of a
// directional shadow camera whose frustum encloses the casters' bounds.
func FitDirectional(light *scene.Node, casters []*scene.Node, near, far float32) (view, proj mgl32.Mat4) {
	view, b := fitDirectional(light, casters, near, far)
	return view, b.matrix()
}

func (m *ShadowMapper) renderDirectional(sh *Shadow, casters []*scene.Node, d DepthDrawer, draw bool) {
	sm := m.acquire(sh)
	view, b := fitDirectional(sh.Light, casters, sh.Near, sh.Far)
	cam := sm.camera
	cam.Left, cam.Right, cam.Bottom, cam.Top = b.left, b.right, b.bottom, b.top
	cam.Near, cam.Far = b.near, b.far
	cam.UpdateProjectionMatrix()
	m.finish(sh, sm, cam, view, casters, d, draw)
}

func (m *ShadowMapper) renderSpot(sh *Shadow, casters []*scene.Node, d DepthDrawer, draw bool) {
	sm := m.acquire(sh)
	l := sh.Light.Light
	pos := sh.Light.WorldPosition()
	target := l.TargetPosition()
	if pos.Sub(target).Len() < 1e-6 {
		target = pos.Sub(mgl32.Vec3{0, 1, 0})
	}

	far := l.Distance
	if far <= 0 {
		far = sh.Far
		if box := casterBounds(casters); !box.Empty() {
			far = 0
			for _, c := range box.Corners() {
				far = max(far, c.Sub(pos).Len())
			}
		}
	}
	near := min(sh.Near, far/2)
	fov := mgl32.Clamp(2*l.Angle, 0.01, math.Pi-0.01)
	aspect := float32(sm.target.Width) / float32(sm.target.Height)

	sm.camera.Fov = mgl32.RadToDeg(fov)
	sm.camera.Aspect = aspect
	sm.camera.Near, sm.camera.Far = near, far
	sm.camera.UpdateProjectionMatrix()

	m.finish(sh, sm, sm.camera, lightView(pos, target), casters, d, draw)
}

// finish stores the light-space matrix and draws the map when due.
func (m *ShadowMapper) finish(sh *Shadow, sm *shadowMap, cam *scene.Camera, view mgl32.Mat4,
	casters []*scene.Node, d DepthDrawer, draw bool) {
	placeCamera(cam, view)
	sh.Matrix = shadowBias.Mul4(cam.ProjectionMatrix()).Mul4(view)
	sh.Map = sm.target

	if !shouldDraw(sm, sh.Light.Light.Shadow, draw) {
		return
	}
	mat := m.depth
	if sm.typ == VSMShadow {
		mat = m.vsmDepth
	}
	d.DrawDepth(DepthPass{
		Target:   sm.target,
		Viewport: core.Rect{Width: sm.target.Width, Height: sm.target.Height},
		Clear:    true,
		Camera:   cam,
		Material: mat,
		Casters:  casters,
	})
	if sm.typ == VSMShadow {
		m.blur(sm, sh, d)
	}
	sm.drawn = true
}

func (m *ShadowMapper) renderPoint(sh *Shadow, casters []*scene.Node, d DepthDrawer, draw bool) {
	sm := m.acquire(sh)
	l := sh.Light.Light
	pos := sh.Light.WorldPosition()
	far := l.Distance
	if far <= 0 {
		far = sh.Far
	}
	sh.Far = far
	sh.Matrix = mgl32.Translate3D(-pos.X(), -pos.Y(), -pos.Z())
	sh.Map = sm.target

	sm.distance.Uniforms["referencePosition"] = pos
	sm.distance.Uniforms["nearDistance"] = sh.Near
	sm.distance.Uniforms["farDistance"] = far

	if !shouldDraw(sm, l.Shadow, draw) {
		return
	}
	fw, fh := sm.target.Width/4, sm.target.Height/2
	for i, cam := range sm.faces {
		cam.Near, cam.Far = sh.Near, far
		cam.UpdateProjectionMatrix()
		placeCamera(cam, mgl32.LookAtV(pos, pos.Add(cubeDirections[i]), cubeUps[i]))
		vp := cubeViewports[i]
		d.DrawDepth(DepthPass{
			Target:   sm.target,
			Viewport: core.Rect{X: vp[0] * fw, Y: vp[1] * fh, Width: fw, Height: fh},
			Clear:    i == 0,
			Camera:   cam,
			Material: sm.distance,
			Casters:  casters,
		})
	}
	sm.drawn = true
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
