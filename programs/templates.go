package programs

import "frame-renderer/scene"

// Template is the base source of one material kind. Defines are always
// prepended for that kind.
type Template struct {
	Vertex   string
	Fragment string
	Defines  []string
}

const litFragment = fragmentCommon + normalChunk + lightsChunk + shadowChunk + envChunk + finalizeChunk + `
uniform vec3 emissive;
#ifdef USE_EMISSIVEMAP
uniform sampler2D emissiveMap;
#endif
#ifdef USE_AOMAP
uniform sampler2D aoMap;
uniform float aoMapIntensity;
#endif
#ifdef USE_LIGHTMAP
uniform sampler2D lightMap;
uniform float lightMapIntensity;
#endif
#ifdef USE_SPECULARMAP
uniform sampler2D specularMap;
#endif
#ifdef USE_GRADIENTMAP
uniform sampler2D gradientMap;
#endif
#if defined(SHADING_PHONG)
uniform vec3 specular;
uniform float shininess;
#endif
#if defined(SHADING_STANDARD) || defined(SHADING_PHYSICAL)
uniform float roughness;
uniform float metalness;
#ifdef USE_ROUGHNESSMAP
uniform sampler2D roughnessMap;
#endif
#ifdef USE_METALNESSMAP
uniform sampler2D metalnessMap;
#endif
#endif
#ifdef USE_TRANSMISSION
uniform float transmission;
uniform float thickness;
uniform vec3 attenuationColor;
uniform float attenuationDistance;
uniform sampler2D transmissionSamplerMap;
uniform vec2 transmissionSamplerSize;
#endif

struct Surface {
    vec3 albedo;
    vec3 specular;
    float shininess;
    float roughness;
    float metalness;
};

float distributionGGX(vec3 n, vec3 h, float r) {
    float a = r * r;
    float a2 = a * a;
    float d = max(dot(n, h), 0.0);
    d = d * d * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

float geometrySmith(vec3 n, vec3 v, vec3 l, float r) {
    float k = (r + 1.0) * (r + 1.0) / 8.0;
    float nv = max(dot(n, v), 0.0);
    float nl = max(dot(n, l), 0.0);
    return (nv / (nv * (1.0 - k) + k)) * (nl / (nl * (1.0 - k) + k));
}

vec3 fresnelSchlick(float cosTheta, vec3 f0) {
    return f0 + (1.0 - f0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 toonRamp(float nl) {
#ifdef USE_GRADIENTMAP
    return texture(gradientMap, vec2(nl * 0.5 + 0.5, 0.0)).rgb;
#else
    return vec3(nl < 0.7 ? 0.7 : 1.0) * step(0.0, nl);
#endif
}

// Reflected radiance for one light arriving from direction l.
vec3 shade(Surface s, vec3 n, vec3 v, vec3 l, vec3 radiance) {
    float nl = max(dot(n, l), 0.0);
#if defined(SHADING_TOON)
    return s.albedo * toonRamp(dot(n, l)) * radiance;
#elif defined(SHADING_PHONG)
    vec3 h = normalize(l + v);
    float spec = pow(max(dot(n, h), 0.0), s.shininess);
    return (s.albedo / PI * nl + s.specular * spec * nl) * radiance * PI;
#elif defined(SHADING_STANDARD) || defined(SHADING_PHYSICAL)
    vec3 h = normalize(l + v);
    vec3 f0 = mix(vec3(0.04), s.albedo, s.metalness);
    float r = max(s.roughness, 0.04);
    vec3 F = fresnelSchlick(max(dot(h, v), 0.0), f0);
    float D = distributionGGX(n, h, r);
    float G = geometrySmith(n, v, l, r);
    vec3 specular = D * G * F / (4.0 * max(dot(n, v), 0.0) * nl + 0.0001);
    vec3 kd = (vec3(1.0) - F) * (1.0 - s.metalness);
    return (kd * s.albedo / PI + specular) * radiance * nl;
#else
    return s.albedo / PI * radiance * nl * PI;
#endif
}

void main() {
    clipFragment();
    vec4 diffuseColor = baseColor(vUv);
    vec3 n = shadingNormal();
    vec3 v = normalize(vViewPosition);

    Surface s;
    s.albedo = diffuseColor.rgb;
    s.specular = vec3(0.0);
    s.shininess = 30.0;
    s.roughness = 1.0;
    s.metalness = 0.0;
#if defined(SHADING_PHONG)
    s.specular = specular;
    s.shininess = max(shininess, 1e-4);
#ifdef USE_SPECULARMAP
    s.specular *= texture(specularMap, vUv).r;
#endif
#endif
#if defined(SHADING_STANDARD) || defined(SHADING_PHYSICAL)
    s.roughness = roughness;
    s.metalness = metalness;
#ifdef USE_ROUGHNESSMAP
    s.roughness *= texture(roughnessMap, vUv).g;
#endif
#ifdef USE_METALNESSMAP
    s.metalness *= texture(metalnessMap, vUv).b;
#endif
#endif

    vec3 direct = vec3(0.0);
    float shadowMask = 1.0;
#if NUM_DIR_LIGHTS > 0
    for (int i = 0; i < NUM_DIR_LIGHTS; i++) {
        float sh = directionalShadow(i);
        shadowMask *= sh;
        direct += shade(s, n, v, directionalLights[i].direction, directionalLights[i].color) * sh;
    }
#endif
#if NUM_POINT_LIGHTS > 0
    for (int i = 0; i < NUM_POINT_LIGHTS; i++) {
        vec3 toLight = pointLights[i].position + vViewPosition;
        float d = length(toLight);
        vec3 radiance = pointLights[i].color * distanceAttenuation(d, pointLights[i].distance, pointLights[i].decay);
        float sh = pointShadow(i);
        shadowMask *= sh;
        direct += shade(s, n, v, toLight / d, radiance) * sh;
    }
#endif
#if NUM_SPOT_LIGHTS > 0
    for (int i = 0; i < NUM_SPOT_LIGHTS; i++) {
        vec3 toLight = spotLights[i].position + vViewPosition;
        float d = length(toLight);
        vec3 l = toLight / d;
        float angleCos = dot(l, spotLights[i].direction);
        float cone = smoothstep(spotLights[i].coneCos, spotLights[i].penumbraCos, angleCos);
        vec3 radiance = spotLights[i].color * cone * distanceAttenuation(d, spotLights[i].distance, spotLights[i].decay);
        float sh = spotShadow(i);
        shadowMask *= sh;
        direct += shade(s, n, v, l, radiance) * sh;
    }
#endif

#ifdef SHADING_SHADOW
    outColor = finalize(vec4(diffuse, opacity * (1.0 - shadowMask)));
    return;
#endif

    vec3 irradiance = ambientIrradiance(n);
#ifdef USE_LIGHTMAP
    irradiance += texture(lightMap, vUv).rgb * lightMapIntensity;
#endif
    vec3 indirect = irradiance * s.albedo * (1.0 - s.metalness);
#ifdef USE_ENVMAP
    vec3 f0 = mix(vec3(0.04), s.albedo, s.metalness);
    vec3 env = sampleEnv(envDirection(n, v), s.roughness);
#if defined(SHADING_STANDARD) || defined(SHADING_PHYSICAL)
    indirect += env * fresnelSchlick(max(dot(n, v), 0.0), f0);
#else
    indirect = mix(indirect, env * s.albedo, 0.5);
#endif
#endif
#ifdef USE_AOMAP
    indirect *= (texture(aoMap, vUv).r - 1.0) * aoMapIntensity + 1.0;
#endif

    vec3 totalEmissive = emissive;
#ifdef USE_EMISSIVEMAP
    totalEmissive *= texture(emissiveMap, vUv).rgb;
#endif

    vec3 color = direct + indirect + totalEmissive;
    float alpha = diffuseColor.a;
#ifdef USE_TRANSMISSION
    vec2 screenUv = gl_FragCoord.xy / transmissionSamplerSize;
    vec3 refracted = refract(-v, n, 1.0 / 1.5);
    vec2 offset = refracted.xy * thickness * 0.05;
    vec3 behind = texture(transmissionSamplerMap, screenUv + offset).rgb;
    if (attenuationDistance > 0.0) {
        behind *= pow(attenuationColor, vec3(thickness / attenuationDistance));
    }
    color = mix(color, behind * s.albedo, transmission);
    alpha = mix(alpha, 1.0, transmission);
#endif
    outColor = finalize(vec4(color, alpha));
}
`

const basicFragment = fragmentCommon + envChunk + finalizeChunk + `
#ifdef USE_AOMAP
uniform sampler2D aoMap;
uniform float aoMapIntensity;
#endif
#ifdef USE_LIGHTMAP
uniform sampler2D lightMap;
uniform float lightMapIntensity;
#endif

void main() {
    clipFragment();
    vec4 c = baseColor(vUv);
    vec3 light = vec3(1.0);
#ifdef USE_LIGHTMAP
    light = texture(lightMap, vUv).rgb * lightMapIntensity;
#endif
#ifdef USE_AOMAP
    light *= (texture(aoMap, vUv).r - 1.0) * aoMapIntensity + 1.0;
#endif
    c.rgb *= light;
#ifdef USE_ENVMAP
    vec3 n = normalize(vNormal);
    c.rgb = mix(c.rgb, c.rgb * sampleEnv(envDirection(n, normalize(vViewPosition)), 0.0), 0.5);
#endif
    outColor = finalize(c);
}
`

const normalFragment = fragmentCommon + normalChunk + `
void main() {
    clipFragment();
    vec3 n = shadingNormal();
    outColor = vec4(n * 0.5 + 0.5, opacity);
}
`

const lineFragment = fragmentCommon + finalizeChunk + `
void main() {
    clipFragment();
    outColor = finalize(baseColor(vUv));
}
`

const pointsVertex = `
uniform float pointSize;
uniform float scale;
#ifdef USE_SIZE_ATTRIBUTE
in float size;
#endif
out vec3 vViewPosition;
out vec2 vUv;
out vec2 vHighPrecisionZW;
#if defined(USE_COLOR_ALPHA)
out vec4 vColor;
#elif defined(USE_COLOR)
out vec3 vColor;
#endif
#if NUM_CLIPPING_PLANES > 0
out vec3 vClipPosition;
#endif

void main() {
    vec4 mvPosition = modelViewMatrix * vec4(position, 1.0);
    gl_Position = projectionMatrix * mvPosition;
    float s = pointSize;
#ifdef USE_SIZE_ATTRIBUTE
    s *= size;
#endif
#ifdef USE_SIZEATTENUATION
    if (!isOrthographic) s *= scale / -mvPosition.z;
#endif
    gl_PointSize = s;
    vViewPosition = -mvPosition.xyz;
    vUv = uv;
    vHighPrecisionZW = gl_Position.zw;
#if defined(USE_COLOR) || defined(USE_COLOR_ALPHA)
    vColor = color;
#endif
#if NUM_CLIPPING_PLANES > 0
    vClipPosition = -mvPosition.xyz;
#endif
}
`

// Without a map each point is a soft disc.
const pointsFragment = fragmentCommon + finalizeChunk + `
void main() {
    clipFragment();
#ifdef USE_MAP
    vec4 c = baseColor(gl_PointCoord);
#else
    vec4 c = baseColor(vUv);
    vec2 coord = gl_PointCoord - vec2(0.5);
    float dist = length(coord);
    if (dist > 0.5) discard;
    c.a *= 1.0 - smoothstep(0.3, 0.5, dist);
#endif
    outColor = finalize(c);
}
`

const spriteVertex = `
uniform float rotation;
out vec3 vViewPosition;
out vec2 vUv;
out vec2 vHighPrecisionZW;
#if NUM_CLIPPING_PLANES > 0
out vec3 vClipPosition;
#endif

void main() {
    vec4 mvPosition = modelViewMatrix * vec4(0.0, 0.0, 0.0, 1.0);
    vec2 scale = vec2(length(modelMatrix[0].xyz), length(modelMatrix[1].xyz));
    vec2 corner = position.xy * scale;
    float c = cos(rotation);
    float s = sin(rotation);
    mvPosition.xy += vec2(c * corner.x - s * corner.y, s * corner.x + c * corner.y);
    gl_Position = projectionMatrix * mvPosition;
    vViewPosition = -mvPosition.xyz;
    vUv = uv;
    vHighPrecisionZW = gl_Position.zw;
#if NUM_CLIPPING_PLANES > 0
    vClipPosition = -mvPosition.xyz;
#endif
}
`

const spriteFragment = fragmentCommon + finalizeChunk + `
void main() {
    clipFragment();
    outColor = finalize(baseColor(vUv));
}
`

const depthFragment = fragmentCommon + `
void main() {
    clipFragment();
#if defined(USE_MAP) || defined(USE_ALPHAMAP) || defined(USE_ALPHATEST)
    baseColor(vUv);
#endif
    float fragDepth = 0.5 * vHighPrecisionZW[0] / vHighPrecisionZW[1] + 0.5;
#if defined(VSM_MOMENTS)
    outColor = vec4(fragDepth, fragDepth * fragDepth, 0.0, 1.0);
#elif defined(DEPTH_PACKING_RGBA)
    outColor = packDepthToRGBA(fragDepth);
#else
    outColor = vec4(vec3(1.0 - fragDepth), opacity);
#endif
}
`

const distanceFragment = fragmentCommon + `
uniform vec3 referencePosition;
uniform float nearDistance;
uniform float farDistance;

void main() {
    clipFragment();
#if defined(USE_MAP) || defined(USE_ALPHAMAP) || defined(USE_ALPHATEST)
    baseColor(vUv);
#endif
    float dist = length(vWorldPosition - referencePosition);
    dist = clamp((dist - nearDistance) / (farDistance - nearDistance), 0.0, 1.0);
    outColor = packDepthToRGBA(dist);
}
`

const meshVertex = vertexCommon + vertexMain

var templates = map[scene.MaterialKind]Template{
	scene.BasicMaterial:    {Vertex: meshVertex, Fragment: basicFragment},
	scene.LambertMaterial:  {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_LAMBERT"}},
	scene.PhongMaterial:    {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_PHONG"}},
	scene.StandardMaterial: {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_STANDARD"}},
	scene.PhysicalMaterial: {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_STANDARD", "SHADING_PHYSICAL"}},
	scene.ToonMaterial:     {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_TOON"}},
	scene.ShadowMaterial:   {Vertex: meshVertex, Fragment: litFragment, Defines: []string{"SHADING_SHADOW"}},
	scene.NormalMaterial:   {Vertex: meshVertex, Fragment: normalFragment},
	scene.LineMaterial:     {Vertex: meshVertex, Fragment: lineFragment},
	scene.PointsMaterial:   {Vertex: pointsVertex, Fragment: pointsFragment},
	scene.SpriteMaterial:   {Vertex: spriteVertex, Fragment: spriteFragment},
	scene.DepthMaterial:    {Vertex: meshVertex, Fragment: depthFragment},
	scene.DistanceMaterial: {Vertex: meshVertex, Fragment: distanceFragment},
}

// TemplateFor returns the built-in template of kind. Custom kinds have none.
func TemplateFor(kind scene.MaterialKind) (Template, bool) {
	t, ok := templates[kind]
	return t, ok
}
