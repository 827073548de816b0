package main

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
	"frame-renderer/materials"
	"frame-renderer/scene"
)

func rgb(r, g, b float32) core.Color { return core.Color{R: r, G: g, B: b, A: 1} }

// surface is a rough standard material.
func surface(name string, c core.Color, roughness float32) *scene.Material {
	m := materials.New(name, scene.StandardMaterial)
	m.Color = c
	m.Roughness = roughness
	return m
}

func solid(name string, geo *scene.Geometry, m *scene.Material, pos mgl32.Vec3) *scene.Node {
	n := scene.NewMesh(name, geo, m)
	n.SetPosition(pos)
	n.CastShadow = true
	n.ReceiveShadow = true
	return n
}

// buildScene fills sc with a small town square: buildings, a fountain, lamp
// posts with point lights, a glass orb, a ghost panel and a fire.
func buildScene(sc *scene.Scene) (Sky, []*scene.ParticleEmitter) {
	stone := surface("Stone", rgb(0.58, 0.55, 0.50), 0.9)
	brick := surface("Brick", rgb(0.70, 0.43, 0.30), 0.85)
	plaster := surface("Plaster", rgb(0.90, 0.87, 0.78), 0.7)
	roof := surface("Roof", rgb(0.32, 0.30, 0.28), 0.8)
	marble := surface("Marble", rgb(0.92, 0.90, 0.86), 0.25)
	ground := materials.New("Ground", scene.LambertMaterial)
	ground.Color = rgb(0.62, 0.58, 0.52)
	ground.Map = scene.NewCheckerTexture("Paving", 256,
		color.RGBA{R: 235, G: 230, B: 220, A: 255}, color.RGBA{R: 200, G: 192, B: 180, A: 255})
	trunk := surface("Trunk", rgb(0.42, 0.28, 0.13), 0.9)
	leaves := materials.Plastic(rgb(0.12, 0.42, 0.15))
	iron := materials.Metal(rgb(0.14, 0.14, 0.12))
	lamp := materials.Emissive(3.0, 2.0, 0.6)

	floor := scene.NewMesh("Ground", scene.CreatePlane(80, 80, 1), ground)
	floor.ReceiveShadow = true
	sc.Add(floor, scene.NewGridHelper(80, 40))

	box := func(name string, pos, size mgl32.Vec3, m *scene.Material) {
		n := solid(name, scene.CreateCube(1), m, pos)
		n.SetScale(size)
		sc.Add(n)
	}
	box("Bldg_NW", mgl32.Vec3{-15, 4.5, -15}, mgl32.Vec3{9, 9, 9}, stone)
	box("Bldg_NW_roof", mgl32.Vec3{-15, 9.5, -15}, mgl32.Vec3{10, 1, 10}, roof)
	box("Bldg_NE", mgl32.Vec3{16, 3.5, -15}, mgl32.Vec3{12, 7, 10}, brick)
	box("Bldg_NE_roof", mgl32.Vec3{16, 7.5, -15}, mgl32.Vec3{13, 1, 11}, roof)
	box("Bldg_SW", mgl32.Vec3{-15, 3, 16}, mgl32.Vec3{8, 6, 8}, plaster)
	box("Bldg_SW_roof", mgl32.Vec3{-15, 6.5, 16}, mgl32.Vec3{9, 1, 9}, roof)
	box("Bldg_SE", mgl32.Vec3{16, 2.5, 16}, mgl32.Vec3{14, 5, 8}, stone)
	box("Bldg_SE_roof", mgl32.Vec3{16, 5.5, 16}, mgl32.Vec3{15, 1, 9}, roof)

	// Fountain: every part hangs off one group node.
	fountain := scene.NewNode("Fountain")
	fountain.Add(
		solid("Fountain_Base", scene.CreateCylinder(3.4, 3.4, 0.4, 24), marble, mgl32.Vec3{0, 0.2, 0}),
		solid("Fountain_Bowl", scene.CreateCylinder(3.0, 3.0, 0.6, 24), marble, mgl32.Vec3{0, 0.7, 0}),
		solid("Fountain_Pillar", scene.CreateCylinder(0.38, 0.38, 2.8, 16), marble, mgl32.Vec3{0, 1.4, 0}),
	)
	sc.Add(fountain)

	// The glass orb on the pillar refracts the square through the transmission pass.
	orb := solid("Fountain_Orb", scene.CreateSphere(0.6, 32, 16), materials.Glass(), mgl32.Vec3{0, 3.4, 0})
	fountain.Add(orb)

	for i, p := range []mgl32.Vec2{{-8, -5}, {8, -6}, {-9, 6}, {9, 5}, {-6, -11}, {7, -10}} {
		sc.Add(
			solid(fmt.Sprintf("Trunk%d", i), scene.CreateCylinder(0.22, 0.22, 2.2, 8), trunk, mgl32.Vec3{p.X(), 1.1, p.Y()}),
			solid(fmt.Sprintf("Canopy%d", i), scene.CreateCone(1.7, 3.0, 16), leaves, mgl32.Vec3{p.X(), 3.1, p.Y()}),
		)
	}

	for i, p := range []mgl32.Vec2{{-5.5, -5.5}, {5.5, -5.5}, {-5.5, 5.5}, {5.5, 5.5}} {
		post := scene.NewNode(fmt.Sprintf("Lamp%d", i))
		post.SetPosition(mgl32.Vec3{p.X(), 0, p.Y()})
		post.Add(
			solid("Pole", scene.CreateCylinder(0.09, 0.09, 4.8, 8), iron, mgl32.Vec3{0, 2.4, 0}),
			solid("Cap", scene.CreateSphere(0.28, 12, 6), lamp, mgl32.Vec3{0, 4.9, 0}),
		)
		light := scene.NewPointLight(rgb(1.0, 0.78, 0.35), 6, 14, 2)
		light.SetPosition(mgl32.Vec3{0, 4.6, 0})
		// One shadow-casting lamp keeps the cube map count low.
		light.Light.Shadow.MapSize = [2]int{512, 512}
		light.CastShadow = i == 0
		post.Add(light)
		sc.Add(post)
	}

	ghost := scene.NewMesh("GhostPanel", scene.CreatePlane(4, 3, 1),
		materials.Ghost(rgb(0.55, 0.8, 1.0), 0.4))
	ghost.SetPosition(mgl32.Vec3{0, 2, 6})
	ghost.Rotate(mgl32.Vec3{1, 0, 0}, mgl32.DegToRad(90))
	sc.Add(ghost)

	fire := scene.NewParticleEmitter(300)
	fire.Position = mgl32.Vec3{3.5, 0.1, 3.5}
	smoke := scene.NewSmokeEmitter(80)
	smoke.Position = mgl32.Vec3{3.5, 0.7, 3.5}
	sc.Add(fire.Node, smoke.Node)

	sun := scene.NewDirectionalLight(rgb(1.0, 0.9, 0.7), 2)
	sun.CastShadow = true
	sun.Light.Shadow.MapSize = [2]int{2048, 2048}
	sun.Light.Shadow.Far = 100
	hemi := scene.NewHemisphereLight(rgb(0.2, 0.42, 0.9), rgb(0.12, 0.1, 0.08), 0.6)
	ambient := scene.NewAmbientLight(rgb(0.16, 0.18, 0.26), 1)
	sc.Add(sun, hemi, ambient)

	return Sky{Sun: sun, Hemisphere: hemi, Ambient: ambient}, []*scene.ParticleEmitter{fire, smoke}
}
