package renderer

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/scene"
)

// lightUniformNames holds the struct-array uniform names so the per-draw
// path formats no strings.
type lightUniformNames struct {
	directional [][]string
	point       [][]string
	spot        [][]string
	hemisphere  [][]string

	directionalShadow [][]string
	spotShadow        [][]string
	pointShadow       [][]string

	directionalMatrix []string
	spotMatrix        []string
	pointMatrix       []string
	directionalMap    []string
	spotMap           []string
	pointMap          []string
}

func fieldNames(array string, n int, fields ...string) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = make([]string, len(fields))
		for j, f := range fields {
			out[i][j] = fmt.Sprintf("%s[%d].%s", array, i, f)
		}
	}
	return out
}

func elementNames(array string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s[%d]", array, i)
	}
	return out
}

var shadowFields = []string{"shadowBias", "shadowNormalBias", "shadowRadius", "shadowMapSize"}

func newLightUniformNames(l lights.Limits) *lightUniformNames {
	return &lightUniformNames{
		directional: fieldNames("directionalLights", l.Directional, "direction", "color"),
		point:       fieldNames("pointLights", l.Point, "position", "color", "distance", "decay"),
		spot: fieldNames("spotLights", l.Spot,
			"position", "direction", "color", "distance", "decay", "coneCos", "penumbraCos"),
		hemisphere: fieldNames("hemisphereLights", l.Hemisphere, "direction", "skyColor", "groundColor"),

		directionalShadow: fieldNames("directionalLightShadows", l.Directional, shadowFields...),
		spotShadow:        fieldNames("spotLightShadows", l.Spot, shadowFields...),
		pointShadow: fieldNames("pointLightShadows", l.Point,
			append(shadowFields[:len(shadowFields):len(shadowFields)], "shadowCameraNear", "shadowCameraFar")...),

		directionalMatrix: elementNames("directionalShadowMatrix", l.Directional),
		spotMatrix:        elementNames("spotShadowMatrix", l.Spot),
		pointMatrix:       elementNames("pointShadowMatrix", l.Point),
		directionalMap:    elementNames("directionalShadowMap", l.Directional),
		spotMap:           elementNames("spotShadowMap", l.Spot),
		pointMap:          elementNames("pointShadowMap", l.Point),
	}
}

const maxMorphAttributes = 8

var (
	morphTargetNames = numberedNames("morphTarget", maxMorphAttributes)
	morphNormalNames = numberedNames("morphNormal", maxMorphAttributes)
)

func numberedNames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func (r *Renderer) setCameraUniforms(u *programs.Uniforms) {
	v := &r.view
	u.Set("projectionMatrix", v.projection)
	u.Set("viewMatrix", v.view)
	u.Set("cameraPosition", v.position)
	u.Set("isOrthographic", v.ortho)
	u.Set("toneMappingExposure", r.opts.ToneMappingExposure)
}

func (r *Renderer) setLightUniforms(u *programs.Uniforms) {
	st, n := r.lights, r.names
	u.Set("ambientLightColor", st.Ambient)
	for i, l := range st.Directional {
		f := n.directional[i]
		u.Set(f[0], l.Direction)
		u.Set(f[1], l.Color)
	}
	for i, l := range st.Point {
		f := n.point[i]
		u.Set(f[0], l.Position)
		u.Set(f[1], l.Color)
		u.Set(f[2], l.Distance)
		u.Set(f[3], l.Decay)
	}
	for i, l := range st.Spot {
		f := n.spot[i]
		u.Set(f[0], l.Position)
		u.Set(f[1], l.Direction)
		u.Set(f[2], l.Color)
		u.Set(f[3], l.Distance)
		u.Set(f[4], l.Decay)
		u.Set(f[5], l.ConeCos)
		u.Set(f[6], l.PenumbraCos)
	}
	for i, l := range st.Hemisphere {
		f := n.hemisphere[i]
		u.Set(f[0], l.Direction)
		u.Set(f[1], l.SkyColor)
		u.Set(f[2], l.GroundColor)
	}

	if !st.ShadowsEnabled {
		return
	}
	for i := range st.DirectionalShadows {
		r.setShadowUniforms(u, &st.DirectionalShadows[i], n.directionalShadow[i], n.directionalMatrix[i], n.directionalMap[i])
	}
	for i := range st.SpotShadows {
		r.setShadowUniforms(u, &st.SpotShadows[i], n.spotShadow[i], n.spotMatrix[i], n.spotMap[i])
	}
	for i := range st.PointShadows {
		sh := &st.PointShadows[i]
		f := n.pointShadow[i]
		r.setShadowUniforms(u, sh, f, n.pointMatrix[i], n.pointMap[i])
		u.Set(f[4], sh.Near)
		u.Set(f[5], sh.Far)
	}
}

func (r *Renderer) setShadowUniforms(u *programs.Uniforms, sh *lights.Shadow, fields []string, matrix, sampler string) {
	u.Set(fields[0], sh.Bias)
	u.Set(fields[1], sh.NormalBias)
	u.Set(fields[2], sh.Radius)
	u.Set(fields[3], mgl32.Vec2{float32(sh.MapSize[0]), float32(sh.MapSize[1])})
	u.Set(matrix, sh.Matrix)
	if sh.Map != nil {
		r.bindTexture(u, sampler, shadowTexture(sh.Map))
	}
}

// shadowTexture is the sampled attachment of a shadow map: the depth texture
// for depth maps, the color attachment for moments and packed distances.
func shadowTexture(rt *scene.RenderTarget) *scene.Texture {
	if rt.DepthTexture != nil {
		return rt.DepthTexture
	}
	return rt.Texture()
}

func (r *Renderer) setFogUniforms(u *programs.Uniforms, m *scene.Material) {
	fog := r.ctx.Fog
	if fog == nil || !m.Fog {
		return
	}
	u.Set("fogColor", fog.Color)
	u.Set("fogNear", fog.Near)
	u.Set("fogFar", fog.Far)
	u.Set("fogDensity", fog.Density)
}

// setClippingUniforms uploads the global planes followed by the material's
// local planes, all in view space.
func (r *Renderer) setClippingUniforms(u *programs.Uniforms, m *scene.Material) {
	planes := r.view.planes
	if r.opts.LocalClippingEnabled && len(m.ClippingPlanes) > 0 {
		planes = slices.Clip(planes)
		for _, p := range m.ClippingPlanes {
			planes = append(planes, r.viewPlane(p))
		}
	}
	if len(planes) > 0 {
		u.Set("clippingPlanes", planes)
	}
}

// bindTexture assigns tex the next texture unit and points name at it.
func (r *Renderer) bindTexture(u *programs.Uniforms, name string, tex *scene.Texture) {
	if tex == nil || !u.Has(name) {
		return
	}
	unit := r.state.AllocateTextureUnit()
	if err := r.resources.Textures.Update(tex, unit); err != nil {
		r.warnOnce("texture:"+name, "texture upload failed", zap.String("uniform", name), zap.Error(err))
		return
	}
	u.Set(name, unit)
}

func (r *Renderer) setMaterialUniforms(u *programs.Uniforms, m *scene.Material) {
	u.Set("diffuse", m.Color)
	u.Set("opacity", m.Opacity)
	if m.AlphaTest > 0 {
		u.Set("alphaTest", m.AlphaTest)
	}
	r.bindTexture(u, "map", m.Map)
	r.bindTexture(u, "alphaMap", m.AlphaMap)

	switch m.Kind {
	case scene.LambertMaterial, scene.PhongMaterial, scene.StandardMaterial, scene.PhysicalMaterial, scene.ToonMaterial:
		r.setSurfaceUniforms(u, m)
	case scene.PointsMaterial:
		u.Set("pointSize", m.Size*r.opts.PixelRatio)
		u.Set("scale", float32(r.height)/2)
	case scene.SpriteMaterial:
		u.Set("rotation", m.Rotation)
	}

	for name, v := range m.Uniforms {
		if tex, ok := v.(*scene.Texture); ok {
			r.bindTexture(u, name, tex)
			continue
		}
		u.Set(name, v)
	}
}

func (r *Renderer) setSurfaceUniforms(u *programs.Uniforms, m *scene.Material) {
	u.Set("emissive", m.Emissive.Scale(m.EmissiveIntensity))
	r.bindTexture(u, "emissiveMap", m.EmissiveMap)
	r.bindTexture(u, "aoMap", m.AOMap)
	u.Set("aoMapIntensity", m.AOIntensity)
	r.bindTexture(u, "lightMap", m.LightMap)
	u.Set("lightMapIntensity", m.LightMapIntensity)
	r.bindTexture(u, "normalMap", m.NormalMap)
	u.Set("normalScale", mgl32.Vec2{m.NormalScale, m.NormalScale})

	switch m.Kind {
	case scene.PhongMaterial:
		u.Set("specular", m.Specular)
		u.Set("shininess", max(m.Shininess, 1e-4))
		r.bindTexture(u, "specularMap", m.SpecularMap)
	case scene.ToonMaterial:
		r.bindTexture(u, "gradientMap", m.GradientMap)
	case scene.StandardMaterial, scene.PhysicalMaterial:
		u.Set("roughness", m.Roughness)
		u.Set("metalness", m.Metalness)
		r.bindTexture(u, "roughnessMap", m.RoughnessMap)
		r.bindTexture(u, "metalnessMap", m.MetalnessMap)
		u.Set("ior", m.IOR)
	}

	env := m.EnvMap
	if env == nil && (m.Kind == scene.StandardMaterial || m.Kind == scene.PhysicalMaterial) {
		env = r.ctx.Environment
	}
	if env != nil {
		r.bindTexture(u, "envMap", env)
		u.Set("envMapIntensity", m.EnvMapIntensity)
	}

	if m.IsTransmissive() {
		u.Set("transmission", m.Transmission)
		u.Set("thickness", m.Thickness)
		u.Set("attenuationColor", m.AttenuationColor)
		u.Set("attenuationDistance", m.AttenuationDistance)
		if r.transmission != nil && !r.prepass {
			r.bindTexture(u, "transmissionSamplerMap", r.transmission.Texture())
			u.Set("transmissionSamplerSize", mgl32.Vec2{float32(r.transmission.Width), float32(r.transmission.Height)})
		}
	}
}

func (r *Renderer) setObjectUniforms(u *programs.Uniforms, obj *scene.Node) {
	world := obj.WorldMatrix()
	modelView := r.view.view.Mul4(world)
	u.Set("modelMatrix", world)
	u.Set("modelViewMatrix", modelView)
	u.Set("normalMatrix", modelView.Mat3().Inv().Transpose())

	d := obj.Drawable
	if d == nil {
		return
	}
	if sk := d.Skeleton; sk != nil && len(sk.Bones) > 0 {
		if r.skinned[sk] != r.info.Frame {
			sk.Update()
			r.skinned[sk] = r.info.Frame
		}
		bones := sk.BoneMatrices()
		if r.opts.MaxBones > 0 {
			bones = bones[:16*min(len(sk.Bones), r.opts.MaxBones)]
		}
		u.SetMatrices("boneMatrices", bones)
	}
	if geo := d.Geometry; geo != nil && len(geo.MorphAttributes["position"]) > 0 {
		influences := d.MorphInfluences[:min(len(d.MorphInfluences), maxMorphAttributes)]
		base := float32(1)
		if !geo.MorphTargetsRelative {
			for _, w := range influences {
				base -= w
			}
		}
		u.Set("morphTargetBaseInfluence", base)
		if len(influences) > 0 {
			u.Set("morphTargetInfluences", influences)
		}
	}
}

// warnOnce logs a warning the first time key is seen.
func (r *Renderer) warnOnce(key, msg string, fields ...zap.Field) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.log.Warn(msg, fields...)
}
