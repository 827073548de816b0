package programs

// GLSL 4.10 core building blocks. Templates are assembled from these at init
// and receive a generated #define prefix at compile time.

const vertexCommon = `
out vec3 vViewPosition;
out vec3 vWorldPosition;
out vec3 vNormal;
out vec2 vUv;
out vec2 vHighPrecisionZW;
#if defined(USE_COLOR_ALPHA)
out vec4 vColor;
#elif defined(USE_COLOR) || defined(USE_INSTANCING_COLOR)
out vec3 vColor;
#endif
#ifdef USE_TANGENT
out vec3 vTangent;
out vec3 vBitangent;
#endif
#if NUM_CLIPPING_PLANES > 0
out vec3 vClipPosition;
#endif
#ifdef USE_SKINNING
uniform mat4 boneMatrices[MAX_BONES];
#endif
#ifdef USE_SHADOWMAP
#if NUM_DIR_LIGHT_SHADOWS > 0
uniform mat4 directionalShadowMatrix[NUM_DIR_LIGHT_SHADOWS];
out vec4 vDirectionalShadowCoord[NUM_DIR_LIGHT_SHADOWS];
#endif
#if NUM_SPOT_LIGHT_SHADOWS > 0
uniform mat4 spotShadowMatrix[NUM_SPOT_LIGHT_SHADOWS];
out vec4 vSpotShadowCoord[NUM_SPOT_LIGHT_SHADOWS];
#endif
#if NUM_POINT_LIGHT_SHADOWS > 0
uniform mat4 pointShadowMatrix[NUM_POINT_LIGHT_SHADOWS];
out vec4 vPointShadowCoord[NUM_POINT_LIGHT_SHADOWS];
#endif
#endif
`

// vertexMain transforms position and normal through morphing, skinning and
// instancing, then fills every varying of vertexCommon.
const vertexMain = `
void main() {
    vec3 transformed = position;
    vec3 objectNormal = normal;
#ifdef USE_MORPHTARGETS
    transformed = applyMorph(transformed);
#endif
#ifdef USE_MORPHNORMALS
    objectNormal = applyMorphNormal(objectNormal);
#endif
#ifdef USE_SKINNING
    mat4 skin = skinWeight.x * boneMatrices[int(skinIndex.x)]
              + skinWeight.y * boneMatrices[int(skinIndex.y)]
              + skinWeight.z * boneMatrices[int(skinIndex.z)]
              + skinWeight.w * boneMatrices[int(skinIndex.w)];
    transformed = (skin * vec4(transformed, 1.0)).xyz;
    objectNormal = mat3(skin) * objectNormal;
#endif

    mat4 model = modelMatrix;
    mat3 nm = normalMatrix;
#ifdef USE_INSTANCING
    model = modelMatrix * instanceMatrix;
    nm = mat3(viewMatrix) * transpose(inverse(mat3(model)));
#endif

    vec4 worldPosition = model * vec4(transformed, 1.0);
    vec4 mvPosition = viewMatrix * worldPosition;
    gl_Position = projectionMatrix * mvPosition;

    vViewPosition = -mvPosition.xyz;
    vWorldPosition = worldPosition.xyz;
    vNormal = normalize(nm * objectNormal);
#ifdef FLIP_SIDED
    vNormal = -vNormal;
#endif
    vUv = uv;
    vHighPrecisionZW = gl_Position.zw;

#if defined(USE_COLOR_ALPHA)
    vColor = color;
#elif defined(USE_COLOR) || defined(USE_INSTANCING_COLOR)
    vColor = vec3(1.0);
#ifdef USE_COLOR
    vColor *= color;
#endif
#ifdef USE_INSTANCING_COLOR
    vColor *= instanceColor;
#endif
#endif
#ifdef USE_TANGENT
    vTangent = normalize(nm * tangent.xyz);
    vBitangent = normalize(cross(vNormal, vTangent) * tangent.w);
#endif
#if NUM_CLIPPING_PLANES > 0
    vClipPosition = -mvPosition.xyz;
#endif
#ifdef USE_SHADOWMAP
#if NUM_DIR_LIGHT_SHADOWS > 0
    for (int i = 0; i < NUM_DIR_LIGHT_SHADOWS; i++) {
        vDirectionalShadowCoord[i] = directionalShadowMatrix[i] * worldPosition;
    }
#endif
#if NUM_SPOT_LIGHT_SHADOWS > 0
    for (int i = 0; i < NUM_SPOT_LIGHT_SHADOWS; i++) {
        vSpotShadowCoord[i] = spotShadowMatrix[i] * worldPosition;
    }
#endif
#if NUM_POINT_LIGHT_SHADOWS > 0
    for (int i = 0; i < NUM_POINT_LIGHT_SHADOWS; i++) {
        vPointShadowCoord[i] = pointShadowMatrix[i] * worldPosition;
    }
#endif
#endif
}
`

const fragmentCommon = `
in vec3 vViewPosition;
in vec3 vWorldPosition;
in vec3 vNormal;
in vec2 vUv;
in vec2 vHighPrecisionZW;
#if defined(USE_COLOR_ALPHA)
in vec4 vColor;
#elif defined(USE_COLOR) || defined(USE_INSTANCING_COLOR)
in vec3 vColor;
#endif
#ifdef USE_TANGENT
in vec3 vTangent;
in vec3 vBitangent;
#endif

const float PI = 3.14159265359;

uniform vec3 diffuse;
uniform float opacity;
#ifdef USE_ALPHATEST
uniform float alphaTest;
#endif
#ifdef USE_MAP
uniform sampler2D map;
#endif
#ifdef USE_ALPHAMAP
uniform sampler2D alphaMap;
#endif

#if NUM_CLIPPING_PLANES > 0
in vec3 vClipPosition;
uniform vec4 clippingPlanes[NUM_CLIPPING_PLANES];
void clipFragment() {
    for (int i = 0; i < UNION_CLIPPING_PLANES; i++) {
        vec4 plane = clippingPlanes[i];
        if (dot(vClipPosition, plane.xyz) > plane.w) discard;
    }
#if UNION_CLIPPING_PLANES < NUM_CLIPPING_PLANES
    bool clipped = true;
    for (int i = UNION_CLIPPING_PLANES; i < NUM_CLIPPING_PLANES; i++) {
        vec4 plane = clippingPlanes[i];
        clipped = (dot(vClipPosition, plane.xyz) > plane.w) && clipped;
    }
    if (clipped) discard;
#endif
}
#else
void clipFragment() {}
#endif

// Base color from material color, map, vertex colors and alpha map.
vec4 baseColor(vec2 uv) {
    vec4 c = vec4(diffuse, opacity);
#ifdef USE_MAP
    c *= texture(map, uv);
#endif
#if defined(USE_COLOR_ALPHA)
    c *= vColor;
#elif defined(USE_COLOR) || defined(USE_INSTANCING_COLOR)
    c.rgb *= vColor;
#endif
#ifdef USE_ALPHAMAP
    c.a *= texture(alphaMap, uv).g;
#endif
#ifdef USE_ALPHATEST
    if (c.a < alphaTest) discard;
#endif
    return c;
}

const float PackUpscale = 256.0 / 255.0;
const float UnpackDownscale = 255.0 / 256.0;
const vec3 PackFactors = vec3(256.0 * 256.0 * 256.0, 256.0 * 256.0, 256.0);
const vec4 UnpackFactors = UnpackDownscale / vec4(PackFactors, 1.0);

vec4 packDepthToRGBA(float v) {
    vec4 r = vec4(fract(v * PackFactors), v);
    r.yzw -= r.xyz * (1.0 / 256.0);
    return r * PackUpscale;
}

float unpackRGBAToDepth(vec4 v) {
    return dot(v, UnpackFactors);
}
`

const toneMappingChunk = `
#ifdef TONE_MAPPING
uniform float toneMappingExposure;

vec3 LinearToneMapping(vec3 color) {
    return clamp(toneMappingExposure * color, 0.0, 1.0);
}

vec3 ReinhardToneMapping(vec3 color) {
    color *= toneMappingExposure;
    return clamp(color / (vec3(1.0) + color), 0.0, 1.0);
}

vec3 CineonToneMapping(vec3 color) {
    color *= toneMappingExposure;
    color = max(vec3(0.0), color - 0.004);
    return pow((color * (6.2 * color + 0.5)) / (color * (6.2 * color + 1.7) + 0.06), vec3(2.2));
}

vec3 RRTAndODTFit(vec3 v) {
    vec3 a = v * (v + 0.0245786) - 0.000090537;
    vec3 b = v * (0.983729 * v + 0.4329510) + 0.238081;
    return a / b;
}

vec3 ACESFilmicToneMapping(vec3 color) {
    const mat3 inputMat = mat3(
        vec3(0.59719, 0.07600, 0.02840),
        vec3(0.35458, 0.90834, 0.13383),
        vec3(0.04823, 0.01566, 0.83777));
    const mat3 outputMat = mat3(
        vec3( 1.60475, -0.10208, -0.00327),
        vec3(-0.53108,  1.10813, -0.07276),
        vec3(-0.07367, -0.00605,  1.07602));
    color *= toneMappingExposure / 0.6;
    color = outputMat * RRTAndODTFit(inputMat * color);
    return clamp(color, 0.0, 1.0);
}

vec3 agxContrast(vec3 x) {
    vec3 x2 = x * x;
    vec3 x4 = x2 * x2;
    return 15.5 * x4 * x2 - 40.14 * x4 * x + 31.96 * x4 - 6.868 * x2 * x + 0.4298 * x2 + 0.1191 * x - 0.00232;
}

vec3 AgXToneMapping(vec3 color) {
    const mat3 agxIn = mat3(
        0.842479062253094, 0.0423282422610123, 0.0423756549057051,
        0.0784335999999992, 0.878468636469772, 0.0784336,
        0.0792237451477643, 0.0791661274605434, 0.879142973793104);
    const mat3 agxOut = mat3(
        1.19687900512017, -0.0528968517574562, -0.0529716355144438,
        -0.0980208811401368, 1.15190312990417, -0.0980434501171241,
        -0.0990297440797205, -0.0989611768448433, 1.15107367264116);
    const float minEv = -12.47393;
    const float maxEv = 4.026069;
    color = agxIn * (color * toneMappingExposure);
    color = clamp(log2(max(color, 1e-10)), minEv, maxEv);
    color = agxContrast((color - minEv) / (maxEv - minEv));
    color = pow(max(vec3(0.0), agxOut * color), vec3(2.2));
    return clamp(color, 0.0, 1.0);
}

vec3 NeutralToneMapping(vec3 color) {
    const float startCompression = 0.8 - 0.04;
    const float desaturation = 0.15;
    color *= toneMappingExposure;
    float x = min(color.r, min(color.g, color.b));
    float offset = x < 0.08 ? x - 6.25 * x * x : 0.04;
    color -= offset;
    float peak = max(color.r, max(color.g, color.b));
    if (peak < startCompression) return color;
    float d = 1.0 - startCompression;
    float newPeak = 1.0 - d * d / (peak + d - startCompression);
    color *= newPeak / peak;
    float g = 1.0 - 1.0 / (desaturation * (peak - newPeak) + 1.0);
    return mix(color, vec3(newPeak), g);
}
#endif
`

// OutputChunk gives custom shaders linearToOutput, which applies the tone
// mapping and output encoding of the pass they are drawn in.
const OutputChunk = toneMappingChunk + `
vec4 linearToOutput(vec4 c) {
#ifdef TONE_MAPPING
    c.rgb = toneMapping(c.rgb);
#endif
#ifdef OUTPUT_SRGB
    vec3 lo = c.rgb * 12.92;
    vec3 hi = pow(c.rgb, vec3(0.41666)) * 1.055 - vec3(0.055);
    c.rgb = mix(hi, lo, vec3(lessThanEqual(c.rgb, vec3(0.0031308))));
#endif
    return c;
}
`

// finalizeChunk applies output encoding, fog, premultiplication and dithering
// in that order.
const finalizeChunk = toneMappingChunk + `
#ifdef USE_FOG
uniform vec3 fogColor;
#ifdef FOG_EXP2
uniform float fogDensity;
#else
uniform float fogNear;
uniform float fogFar;
#endif
#endif

vec4 linearToSRGB(vec4 v) {
    vec3 lo = v.rgb * 12.92;
    vec3 hi = pow(v.rgb, vec3(0.41666)) * 1.055 - vec3(0.055);
    return vec4(mix(hi, lo, vec3(lessThanEqual(v.rgb, vec3(0.0031308)))), v.a);
}

float rand(vec2 uv) {
    return fract(sin(dot(uv, vec2(12.9898, 78.233))) * 43758.5453);
}

vec4 finalize(vec4 c) {
#ifdef TONE_MAPPING
    c.rgb = toneMapping(c.rgb);
#endif
#ifdef OUTPUT_SRGB
    c = linearToSRGB(c);
#endif
#ifdef USE_FOG
    float fogDepth = vViewPosition.z;
#ifdef FOG_EXP2
    float fogFactor = 1.0 - exp(-fogDensity * fogDensity * fogDepth * fogDepth);
#else
    float fogFactor = smoothstep(fogNear, fogFar, fogDepth);
#endif
    c.rgb = mix(c.rgb, fogColor, fogFactor);
#endif
#ifdef PREMULTIPLIED_ALPHA
    c.rgb *= c.a;
#endif
#ifdef DITHERING
    c.rgb += vec3((rand(gl_FragCoord.xy) - 0.5) / 255.0);
#endif
    return c;
}
`

// normalChunk computes the shading normal in view space.
const normalChunk = `
#ifdef USE_NORMALMAP
uniform sampler2D normalMap;
uniform vec2 normalScale;
#endif

vec3 shadingNormal() {
#ifdef FLAT_SHADED
    vec3 n = normalize(cross(dFdx(vViewPosition), dFdy(vViewPosition)));
#else
    vec3 n = normalize(vNormal);
#ifdef DOUBLE_SIDED
    n *= gl_FrontFacing ? 1.0 : -1.0;
#endif
#endif
#ifdef USE_NORMALMAP
    vec3 mapN = texture(normalMap, vUv).xyz * 2.0 - 1.0;
    mapN.xy *= normalScale;
#ifdef USE_TANGENT
    mat3 tbn = mat3(normalize(vTangent), normalize(vBitangent), n);
#else
    vec3 q0 = dFdx(-vViewPosition);
    vec3 q1 = dFdy(-vViewPosition);
    vec2 st0 = dFdx(vUv);
    vec2 st1 = dFdy(vUv);
    vec3 q1perp = cross(q1, n);
    vec3 q0perp = cross(n, q0);
    vec3 T = q1perp * st0.x + q0perp * st1.x;
    vec3 B = q1perp * st0.y + q0perp * st1.y;
    float det = max(dot(T, T), dot(B, B));
    float scale = det == 0.0 ? 0.0 : inversesqrt(det);
    mat3 tbn = mat3(T * scale, B * scale, n);
#endif
    n = normalize(tbn * mapN);
#endif
    return n;
}
`

const lightsChunk = `
uniform vec3 ambientLightColor;

#if NUM_DIR_LIGHTS > 0
struct DirectionalLight {
    vec3 direction;
    vec3 color;
};
uniform DirectionalLight directionalLights[NUM_DIR_LIGHTS];
#endif

#if NUM_POINT_LIGHTS > 0
struct PointLight {
    vec3 position;
    vec3 color;
    float distance;
    float decay;
};
uniform PointLight pointLights[NUM_POINT_LIGHTS];
#endif

#if NUM_SPOT_LIGHTS > 0
struct SpotLight {
    vec3 position;
    vec3 direction;
    vec3 color;
    float distance;
    float decay;
    float coneCos;
    float penumbraCos;
};
uniform SpotLight spotLights[NUM_SPOT_LIGHTS];
#endif

#if NUM_HEMI_LIGHTS > 0
struct HemisphereLight {
    vec3 direction;
    vec3 skyColor;
    vec3 groundColor;
};
uniform HemisphereLight hemisphereLights[NUM_HEMI_LIGHTS];
#endif

float distanceAttenuation(float d, float cutoff, float decay) {
    float f = 1.0 / max(pow(d, decay), 0.01);
    if (cutoff > 0.0) {
        f *= pow(clamp(1.0 - pow(d / cutoff, 4.0), 0.0, 1.0), 2.0);
    }
    return f;
}

vec3 ambientIrradiance(vec3 n) {
    vec3 irradiance = ambientLightColor;
#if NUM_HEMI_LIGHTS > 0
    for (int i = 0; i < NUM_HEMI_LIGHTS; i++) {
        float w = 0.5 * dot(n, hemisphereLights[i].direction) + 0.5;
        irradiance += mix(hemisphereLights[i].groundColor, hemisphereLights[i].skyColor, w);
    }
#endif
    return irradiance;
}
`

const shadowChunk = `
#ifdef USE_SHADOWMAP
struct LightShadow {
    float shadowBias;
    float shadowNormalBias;
    float shadowRadius;
    vec2 shadowMapSize;
};
struct PointLightShadow {
    float shadowBias;
    float shadowNormalBias;
    float shadowRadius;
    vec2 shadowMapSize;
    float shadowCameraNear;
    float shadowCameraFar;
};

#ifdef SHADOWMAP_TYPE_VSM
#define SHADOW_SAMPLER sampler2D
float getShadow(sampler2D shadowMap, LightShadow s, vec4 coord) {
    vec3 c = coord.xyz / coord.w;
    c.z += s.shadowBias;
    if (any(lessThan(c, vec3(0.0))) || any(greaterThan(c, vec3(1.0)))) return 1.0;
    vec2 moments = texture(shadowMap, c.xy).rg;
    if (c.z <= moments.x) return 1.0;
    float variance = max(moments.y - moments.x * moments.x, 0.00002);
    float d = c.z - moments.x;
    float pMax = variance / (variance + d * d);
    return clamp((pMax - 0.3) / 0.7, 0.0, 1.0);
}
#else
#define SHADOW_SAMPLER sampler2DShadow
float getShadow(sampler2DShadow shadowMap, LightShadow s, vec4 coord) {
    vec3 c = coord.xyz / coord.w;
    c.z += s.shadowBias;
    if (c.x < 0.0 || c.x > 1.0 || c.y < 0.0 || c.y > 1.0 || c.z > 1.0) return 1.0;
#if defined(SHADOWMAP_TYPE_PCF) || defined(SHADOWMAP_TYPE_PCF_SOFT)
    vec2 texel = s.shadowRadius / s.shadowMapSize;
    float sum = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            sum += texture(shadowMap, vec3(c.xy + vec2(float(x), float(y)) * texel, c.z));
        }
    }
    return sum / 9.0;
#else
    return texture(shadowMap, c);
#endif
}
#endif

// Maps a direction to the 4:2 atlas holding six cube faces.
vec2 cubeToUV(vec3 v, float texelSizeY) {
    vec3 absV = abs(v);
    float scaleToCube = 1.0 / max(absV.x, max(absV.y, absV.z));
    absV *= scaleToCube;
    v *= scaleToCube * (1.0 - 2.0 * texelSizeY);
    vec2 planar = v.xy;
    float almostOne = 1.0 - 1.5 * texelSizeY;
    if (absV.z >= almostOne) {
        if (v.z > 0.0) planar.x = 4.0 - v.x;
    } else if (absV.x >= almostOne) {
        float signX = sign(v.x);
        planar.x = v.z * signX + 2.0 * signX;
    } else if (absV.y >= almostOne) {
        float signY = sign(v.y);
        planar.x = v.x + 2.0 * signY + 2.0;
        planar.y = v.z * signY - 2.0;
    }
    return vec2(0.125, 0.25) * planar + vec2(0.375, 0.75);
}

float getPointShadow(sampler2D shadowMap, PointLightShadow s, vec4 coord) {
    vec3 lightToPosition = coord.xyz;
    float dp = (length(lightToPosition) - s.shadowCameraNear) / (s.shadowCameraFar - s.shadowCameraNear);
    dp += s.shadowBias;
    vec2 uv = cubeToUV(normalize(lightToPosition), 1.0 / s.shadowMapSize.y);
    return step(dp, unpackRGBAToDepth(texture(shadowMap, uv)));
}

#if NUM_DIR_LIGHT_SHADOWS > 0
uniform LightShadow directionalLightShadows[NUM_DIR_LIGHT_SHADOWS];
uniform SHADOW_SAMPLER directionalShadowMap[NUM_DIR_LIGHT_SHADOWS];
in vec4 vDirectionalShadowCoord[NUM_DIR_LIGHT_SHADOWS];
#endif
#if NUM_SPOT_LIGHT_SHADOWS > 0
uniform LightShadow spotLightShadows[NUM_SPOT_LIGHT_SHADOWS];
uniform SHADOW_SAMPLER spotShadowMap[NUM_SPOT_LIGHT_SHADOWS];
in vec4 vSpotShadowCoord[NUM_SPOT_LIGHT_SHADOWS];
#endif
#if NUM_POINT_LIGHT_SHADOWS > 0
uniform PointLightShadow pointLightShadows[NUM_POINT_LIGHT_SHADOWS];
uniform sampler2D pointShadowMap[NUM_POINT_LIGHT_SHADOWS];
in vec4 vPointShadowCoord[NUM_POINT_LIGHT_SHADOWS];
#endif
#endif

float directionalShadow(int i) {
#if defined(USE_SHADOWMAP) && NUM_DIR_LIGHT_SHADOWS > 0
    for (int j = 0; j < NUM_DIR_LIGHT_SHADOWS; j++) {
        if (j == i) return getShadow(directionalShadowMap[j], directionalLightShadows[j], vDirectionalShadowCoord[j]);
    }
#endif
    return 1.0;
}

float spotShadow(int i) {
#if defined(USE_SHADOWMAP) && NUM_SPOT_LIGHT_SHADOWS > 0
    for (int j = 0; j < NUM_SPOT_LIGHT_SHADOWS; j++) {
        if (j == i) return getShadow(spotShadowMap[j], spotLightShadows[j], vSpotShadowCoord[j]);
    }
#endif
    return 1.0;
}

float pointShadow(int i) {
#if defined(USE_SHADOWMAP) && NUM_POINT_LIGHT_SHADOWS > 0
    for (int j = 0; j < NUM_POINT_LIGHT_SHADOWS; j++) {
        if (j == i) return getPointShadow(pointShadowMap[j], pointLightShadows[j], vPointShadowCoord[j]);
    }
#endif
    return 1.0;
}
`

const envChunk = `
#ifdef USE_ENVMAP
#ifdef ENVMAP_TYPE_CUBE
uniform samplerCube envMap;
#else
uniform sampler2D envMap;
#endif
uniform float envMapIntensity;
uniform float ior;

// Direction in world space; lod grows with roughness.
vec3 sampleEnv(vec3 dir, float roughness) {
#ifdef ENVMAP_TYPE_CUBE
    return textureLod(envMap, dir, roughness * 8.0).rgb * envMapIntensity;
#else
    vec2 uv = vec2(atan(dir.z, dir.x) * 0.1591549 + 0.5, asin(clamp(dir.y, -1.0, 1.0)) * 0.3183099 + 0.5);
    return textureLod(envMap, uv, roughness * 8.0).rgb * envMapIntensity;
#endif
}

vec3 envDirection(vec3 n, vec3 v) {
#ifdef ENVMAP_MODE_REFRACTION
    vec3 r = refract(-v, n, 1.0 / max(ior, 1.0));
#else
    vec3 r = reflect(-v, n);
#endif
    return normalize((vec4(r, 0.0) * viewMatrix).xyz);
}
#endif
`
