package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/scene"
)

func TestSamplePaletteHitsKeyframes(t *testing.T) {
	p := samplePalette(palettes[1].t)
	assert.InDelta(t, palettes[1].sunIntensity, p.sunIntensity, 1e-5)
	assert.InDelta(t, palettes[1].horizon.R, p.horizon.R, 1e-5)
}

func TestApplyDrivesSceneAndLights(t *testing.T) {
	sc := scene.NewScene()
	sky := Sky{
		Sun:        scene.NewDirectionalLight(core.Color{A: 1}, 1),
		Hemisphere: scene.NewHemisphereLight(core.Color{A: 1}, core.Color{A: 1}, 1),
		Ambient:    scene.NewAmbientLight(core.Color{A: 1}, 1),
	}
	dn := NewDayNight()
	dn.Apply(sc, sky)

	require.NotNil(t, sc.Background)
	require.NotNil(t, sc.Fog)
	assert.Equal(t, scene.ExpFog, sc.Fog.Kind)
	assert.InDelta(t, palettes[0].fogDensity, sc.Fog.Density, 1e-6)
	assert.Equal(t, palettes[0].ambient, sky.Ambient.Light.Color)
	assert.Greater(t, sky.Sun.Position.Y(), float32(0), "the sun is overhead at noon")
	assert.Greater(t, sky.Sun.Light.Intensity, float32(0))

	dn.Time = 0.5
	dn.Apply(sc, sky)
	assert.Less(t, sky.Sun.Position.Y(), float32(0))
	assert.Zero(t, sky.Sun.Light.Intensity, "no direct light after dark")
}

func TestLowSunStaysVisible(t *testing.T) {
	sc := scene.NewScene()
	sky := Sky{Sun: scene.NewDirectionalLight(core.Color{A: 1}, 1)}
	dn := NewDayNight()
	dn.Apply(sc, sky)
	noon := sky.Sun.Light.Intensity

	for _, key := range []float32{palettes[1].t, palettes[5].t} {
		dn.Time = key
		dn.Apply(sc, sky)
		assert.Greater(t, sky.Sun.Light.Intensity, 0.3*noon, "t=%v", key)
	}
	for _, key := range []float32{palettes[2].t, palettes[3].t, palettes[4].t} {
		assert.Zero(t, samplePalette(key).sunIntensity, "t=%v", key)
	}
}

func TestDayNightWraps(t *testing.T) {
	dn := NewDayNight()
	dn.Update(dn.Speed * 1.25)
	assert.InDelta(t, 0.25, dn.Time, 1e-4)

	dn.Active = false
	dn.Update(10)
	assert.InDelta(t, 0.25, dn.Time, 1e-4)
}

func TestTimeOfDayStr(t *testing.T) {
	dn := &DayNight{}
	assert.Equal(t, "12:00 PM", dn.TimeOfDayStr())
	dn.Time = 0.25
	assert.Equal(t, "06:00 PM", dn.TimeOfDayStr())
	dn.Time = 0.5
	assert.Equal(t, "12:00 AM", dn.TimeOfDayStr())
}
