package main

import (
	"fmt"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
	"frame-renderer/scene"
)

// dayPalette is the sky and light state at one key time of day.
type dayPalette struct {
	t          float32
	zenith     core.Color
	horizon    core.Color
	ground     core.Color
	fogColor   core.Color
	fogDensity float32
	sunColor   core.Color

	// sunIntensity is scaled by the sun's elevation in Apply, so keys near
	// the horizon carry more than noon to stay visible.
	sunIntensity float32
	ambient      core.Color
}

// palettes is ordered by t and wraps from the last key to the first. Keys
// where the sun is below the horizon only shape the sky, fog and ambient
// fill, since the street lamps take over after dark.
var palettes = []dayPalette{
	{ // noon
		t:            0.00,
		zenith:       rgb(0.24, 0.46, 0.88),
		horizon:      rgb(0.62, 0.76, 0.92),
		ground:       rgb(0.16, 0.13, 0.10),
		fogColor:     rgb(0.64, 0.77, 0.92),
		fogDensity:   0.008,
		sunColor:     rgb(1.00, 0.97, 0.90),
		sunIntensity: 3.0,
		ambient:      rgb(0.10, 0.11, 0.14),
	},
	{ // golden hour
		t:            0.22,
		zenith:       rgb(0.18, 0.24, 0.58),
		horizon:      rgb(0.92, 0.56, 0.24),
		ground:       rgb(0.10, 0.08, 0.06),
		fogColor:     rgb(0.86, 0.58, 0.30),
		fogDensity:   0.014,
		sunColor:     rgb(1.00, 0.68, 0.32),
		sunIntensity: 6.0,
		ambient:      rgb(0.08, 0.08, 0.12),
	},
	{ // dusk
		t:            0.30,
		zenith:       rgb(0.08, 0.10, 0.30),
		horizon:      rgb(0.46, 0.24, 0.30),
		ground:       rgb(0.05, 0.04, 0.05),
		fogColor:     rgb(0.34, 0.20, 0.24),
		fogDensity:   0.018,
		sunColor:     rgb(0.80, 0.46, 0.40),
		sunIntensity: 0,
		ambient:      rgb(0.07, 0.07, 0.13),
	},
	{ // midnight
		t:            0.50,
		zenith:       rgb(0.02, 0.03, 0.09),
		horizon:      rgb(0.05, 0.05, 0.10),
		ground:       rgb(0.02, 0.02, 0.03),
		fogColor:     rgb(0.04, 0.04, 0.08),
		fogDensity:   0.012,
		sunColor:     rgb(0.80, 0.46, 0.40),
		sunIntensity: 0,
		ambient:      rgb(0.05, 0.06, 0.12),
	},
	{ // before dawn
		t:            0.70,
		zenith:       rgb(0.06, 0.08, 0.26),
		horizon:      rgb(0.38, 0.20, 0.28),
		ground:       rgb(0.04, 0.04, 0.05),
		fogColor:     rgb(0.28, 0.16, 0.22),
		fogDensity:   0.018,
		sunColor:     rgb(1.00, 0.58, 0.36),
		sunIntensity: 0,
		ambient:      rgb(0.07, 0.07, 0.13),
	},
	{ // sunrise
		t:            0.78,
		zenith:       rgb(0.16, 0.22, 0.56),
		horizon:      rgb(0.88, 0.50, 0.28),
		ground:       rgb(0.09, 0.07, 0.06),
		fogColor:     rgb(0.78, 0.46, 0.26),
		fogDensity:   0.013,
		sunColor:     rgb(1.00, 0.62, 0.34),
		sunIntensity: 5.5,
		ambient:      rgb(0.08, 0.08, 0.12),
	},
}

// DayNight drives the animated day/night cycle.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds (default 120)
	Active bool    // auto-advance when true
}

func NewDayNight() *DayNight {
	return &DayNight{
		Time:   0.0, // start at noon
		Speed:  120.0,
		Active: true,
	}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active {
		return
	}
	dn.Time += dt / dn.Speed
	if dn.Time > 1.0 {
		dn.Time -= 1.0
	}
}

// lerpColor linearly interpolates between two colours.
func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: 1,
	}
}

// samplePalette returns a linearly interpolated palette for the given time t (0..1).
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	// Find the two surrounding keyframes (wrap-around between last and first)
	var a, b dayPalette
	var localT float32
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		ta := palettes[i].t
		tb := palettes[next].t
		if next == 0 {
			tb = 1.0 // wrap: last key → noon (1.0 == 0.0)
		}
		// Handle wrap-around segment (last key → first key)
		if next == 0 {
			if t >= ta || t < palettes[0].t {
				a = palettes[i]
				b = palettes[0]
				if t >= ta {
					localT = (t - ta) / (tb - ta)
				} else {
					localT = (t + 1.0 - ta) / (tb - ta)
				}
				break
			}
		} else {
			if t >= ta && t < tb {
				a = palettes[i]
				b = palettes[next]
				localT = (t - ta) / (tb - ta)
				break
			}
		}
	}

	return dayPalette{
		zenith:       lerpColor(a.zenith, b.zenith, localT),
		horizon:      lerpColor(a.horizon, b.horizon, localT),
		ground:       lerpColor(a.ground, b.ground, localT),
		fogColor:     lerpColor(a.fogColor, b.fogColor, localT),
		fogDensity:   a.fogDensity + (b.fogDensity-a.fogDensity)*localT,
		sunColor:     lerpColor(a.sunColor, b.sunColor, localT),
		sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*localT,
		ambient:      lerpColor(a.ambient, b.ambient, localT),
	}
}

// Sky is the set of scene nodes the cycle drives.
type Sky struct {
	Sun        *scene.Node
	Hemisphere *scene.Node
	Ambient    *scene.Node
}

// sunDistance keeps the directional light outside the scene bounds so its
// shadow camera sees every caster.
const sunDistance = 40

// Apply writes the current time's palette into the scene and its lights.
func (dn *DayNight) Apply(s *scene.Scene, sky Sky) {
	p := samplePalette(dn.Time)

	// Full rotation in the XY plane, tilted along Z. Noon is overhead.
	angle := float64(dn.Time * 2 * stdmath.Pi)
	toSun := mgl32.Vec3{
		float32(stdmath.Sin(angle)),
		float32(stdmath.Cos(angle)),
		0.35,
	}.Normalize()

	if sky.Sun != nil {
		sky.Sun.SetPosition(toSun.Mul(sunDistance))
		sky.Sun.Light.Color = p.sunColor
		// Below the horizon the sun only darkens the ground.
		sky.Sun.Light.Intensity = p.sunIntensity * max(toSun.Y(), 0)
	}
	if sky.Hemisphere != nil {
		sky.Hemisphere.Light.Color = p.zenith
		sky.Hemisphere.Light.GroundColor = p.ground
	}
	if sky.Ambient != nil {
		sky.Ambient.Light.Color = p.ambient
	}

	bg := p.horizon
	s.Background = &bg
	if s.Fog == nil {
		s.Fog = &scene.Fog{Kind: scene.ExpFog}
	}
	s.Fog.Color = p.fogColor
	s.Fog.Density = p.fogDensity
}

// TimeOfDayStr returns a human-readable time label. Time 0 reads as noon.
func (dn *DayNight) TimeOfDayStr() string {
	clock := dn.Time + 0.5
	clock -= float32(stdmath.Floor(float64(clock)))
	hours := clock * 24.0
	h := int(hours) % 24
	m := int((hours - float32(h)) * 60)
	period := "AM"
	displayH := h
	if h == 0 {
		displayH = 12
	} else if h == 12 {
		period = "PM"
	} else if h > 12 {
		displayH = h - 12
		period = "PM"
	}
	return fmt.Sprintf("%02d:%02d %s", displayH, m, period)
}
