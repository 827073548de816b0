package main

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
	"frame-renderer/scene"
)

const (
	gravity   = -18.0 // m/s²
	jumpSpeed = 7.0
)

// CameraController is a walking camera: WASD, right-drag to look, space to jump.
type CameraController struct {
	moveSpeed  float32
	lookSpeed  float32
	lastMouseX float64
	lastMouseY float64
	firstMouse bool
	yaw        float32 // degrees
	pitch      float32 // degrees

	velocityY      float32
	onGround       bool
	eyeHeight      float32
	jumpKeyWasDown bool
}

func NewCameraController() *CameraController {
	return &CameraController{
		moveSpeed:  6.0,
		lookSpeed:  0.15,
		firstMouse: true,
		yaw:        -90.0,
		eyeHeight:  1.7,
		onGround:   true,
	}
}

func (cc *CameraController) Update(window *core.Window, camera *scene.Camera, dt float32) {
	// Large steps after a hitch would tunnel through the ground.
	dt = min(dt, 0.05)

	if window.IsMouseButtonPressed(core.MouseButtonRight) {
		mouseX, mouseY := window.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX, cc.lastMouseY = mouseX, mouseY
			cc.firstMouse = false
		}
		cc.yaw += float32(mouseX-cc.lastMouseX) * cc.lookSpeed
		cc.pitch += float32(cc.lastMouseY-mouseY) * cc.lookSpeed
		cc.pitch = mgl32.Clamp(cc.pitch, -88, 88)
		cc.lastMouseX, cc.lastMouseY = mouseX, mouseY
	} else {
		cc.firstMouse = true
	}

	yaw := float64(mgl32.DegToRad(cc.yaw))
	pitch := float64(mgl32.DegToRad(cc.pitch))
	forward := mgl32.Vec3{
		float32(stdmath.Cos(yaw) * stdmath.Cos(pitch)),
		float32(stdmath.Sin(pitch)),
		float32(stdmath.Sin(yaw) * stdmath.Cos(pitch)),
	}.Normalize()

	// Strafing ignores pitch so movement stays level.
	ahead := mgl32.Vec3{float32(stdmath.Cos(yaw)), 0, float32(stdmath.Sin(yaw))}
	right := ahead.Cross(mgl32.Vec3{0, 1, 0}).Normalize()

	step := cc.moveSpeed * dt
	var move mgl32.Vec3
	if window.IsKeyPressed(core.KeyW) {
		move = move.Add(ahead.Mul(step))
	}
	if window.IsKeyPressed(core.KeyS) {
		move = move.Sub(ahead.Mul(step))
	}
	if window.IsKeyPressed(core.KeyD) {
		move = move.Add(right.Mul(step))
	}
	if window.IsKeyPressed(core.KeyA) {
		move = move.Sub(right.Mul(step))
	}

	space := window.IsKeyPressed(core.KeySpace)
	if space && !cc.jumpKeyWasDown && cc.onGround {
		cc.velocityY = jumpSpeed
		cc.onGround = false
	}
	cc.jumpKeyWasDown = space
	if !cc.onGround {
		cc.velocityY += gravity * dt
	}

	pos := camera.Node.Position.Add(move)
	pos[1] += cc.velocityY * dt
	if pos.Y() <= cc.eyeHeight {
		pos[1] = cc.eyeHeight
		cc.velocityY = 0
		cc.onGround = true
	}

	camera.Node.SetPosition(pos)
	camera.Node.LookAt(pos.Add(forward))
}
