package renderer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/scene"
)

// ColorSpace is the encoding of the default surface output.
type ColorSpace string

const (
	SRGB   ColorSpace = "srgb"
	Linear ColorSpace = "linear"
)

func (c *ColorSpace) UnmarshalText(b []byte) error {
	switch ColorSpace(b) {
	case SRGB, Linear:
		*c = ColorSpace(b)
		return nil
	}
	return fmt.Errorf("unknown output color space %q", b)
}

type ShadowMapOptions struct {
	Enabled    bool              `toml:"enabled"`
	Type       lights.ShadowType `toml:"type"`
	AutoUpdate bool              `toml:"auto_update"`
}

// Options configures a Renderer. Start from DefaultOptions and override.
type Options struct {
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	PixelRatio float32 `toml:"pixel_ratio"`

	ClearColor       core.Color `toml:"clear_color"`
	AutoClear        bool       `toml:"auto_clear"`
	AutoClearColor   bool       `toml:"auto_clear_color"`
	AutoClearDepth   bool       `toml:"auto_clear_depth"`
	AutoClearStencil bool       `toml:"auto_clear_stencil"`
	SortObjects      bool       `toml:"sort_objects"`

	ShadowMap ShadowMapOptions `toml:"shadow_map"`

	ToneMapping         programs.ToneMapping `toml:"tone_mapping"`
	ToneMappingExposure float32              `toml:"tone_mapping_exposure"`
	OutputColorSpace    ColorSpace           `toml:"output_color_space"`

	// TransmissionResolutionScale sizes the transmission target relative to
	// the drawing buffer.
	TransmissionResolutionScale float32 `toml:"transmission_resolution_scale"`

	CheckShaderErrors bool `toml:"check_shader_errors"`
	FatalShaderErrors bool `toml:"fatal_shader_errors"`

	LocalClippingEnabled bool `toml:"local_clipping_enabled"`
	// ClippingPlanes are world-space planes applied to every material.
	ClippingPlanes []scene.Plane `toml:"-"`

	MaxDirectionalLights int `toml:"max_directional_lights"`
	MaxPointLights       int `toml:"max_point_lights"`
	MaxSpotLights        int `toml:"max_spot_lights"`
	MaxHemisphereLights  int `toml:"max_hemisphere_lights"`
	MaxBones             int `toml:"max_bones"`

	Logger            *zap.Logger                    `toml:"-"`
	OnShaderError     func(*core.ShaderCompileError) `toml:"-"`
	OnContextLost     func()                         `toml:"-"`
	OnContextRestored func()                         `toml:"-"`
}

func DefaultOptions() Options {
	limits := lights.DefaultLimits()
	return Options{
		Width:                       1280,
		Height:                      720,
		PixelRatio:                  1,
		ClearColor:                  core.Color{A: 1},
		AutoClear:                   true,
		AutoClearColor:              true,
		AutoClearDepth:              true,
		AutoClearStencil:            true,
		SortObjects:                 true,
		ShadowMap:                   ShadowMapOptions{Type: lights.PCFShadow, AutoUpdate: true},
		ToneMapping:                 programs.NoToneMapping,
		ToneMappingExposure:         1,
		OutputColorSpace:            SRGB,
		TransmissionResolutionScale: 0.5,
		CheckShaderErrors:           true,
		MaxDirectionalLights:        limits.Directional,
		MaxPointLights:              limits.Point,
		MaxSpotLights:               limits.Spot,
		MaxHemisphereLights:         limits.Hemisphere,
		MaxBones:                    64,
	}
}

// ParseOptions decodes TOML over DefaultOptions. Keys that are absent keep
// their defaults.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse renderer options: %w", err)
	}
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptions reads renderer options from a TOML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read renderer options: %w", err)
	}
	return ParseOptions(data)
}

func (o *Options) validate() error {
	switch {
	case o.Width < 0 || o.Height < 0:
		return fmt.Errorf("renderer options: negative size %dx%d", o.Width, o.Height)
	case o.PixelRatio <= 0:
		return fmt.Errorf("renderer options: pixel ratio must be positive, got %g", o.PixelRatio)
	case o.TransmissionResolutionScale <= 0 || o.TransmissionResolutionScale > 1:
		return fmt.Errorf("renderer options: transmission resolution scale %g out of (0, 1]", o.TransmissionResolutionScale)
	}
	return nil
}

func (o *Options) limits() lights.Limits {
	return lights.Limits{
		Directional: o.MaxDirectionalLights,
		Point:       o.MaxPointLights,
		Spot:        o.MaxSpotLights,
		Hemisphere:  o.MaxHemisphereLights,
	}
}
