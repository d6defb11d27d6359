package engine

import (
	"math"
	"time"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/types"
)

// Pitch is clamped just short of straight up or down so the camera basis
// never degenerates.
const maxPitch = math.Pi/2 - 1e-3

// PhysicsLoop is implemented by user simulations. Init is called once on the
// simulation goroutine before the first tick and Update once per tick.
// Returning an error stops the simulation.
type PhysicsLoop interface {
	Init(*Physics) error
	Update(*Physics) error
}

// Physics is the handle through which a PhysicsLoop mutates the simulation
// state. It is only valid on the simulation goroutine.
type Physics struct {
	triangles TriangleBuffer
	params    EngineParams

	tick      uint64
	deltaTime time.Duration
}

// NewPhysics creates a physics handle with the given screen dimensions.
func NewPhysics(width, height uint32) *Physics {
	return &Physics{
		params: EngineParams{ScreenDimensions: [2]uint32{width, height}},
	}
}

// Triangles returns the live triangle buffer.
func (p *Physics) Triangles() *TriangleBuffer {
	return &p.triangles
}

// LoadScene appends the geometry of all scene meshes to the live buffer.
func (p *Physics) LoadScene(sc *scene.Scene) {
	for _, m := range sc.Meshes {
		p.triangles.AppendMesh(m)
	}
}

// Camera returns the current camera state.
func (p *Physics) Camera() EngineCamera {
	return p.params.Camera
}

// SetCameraPosition moves the camera to pos.
func (p *Physics) SetCameraPosition(pos types.Vec3) {
	p.params.Camera.Pos = pos
}

// MoveCamera translates the camera by delta.
func (p *Physics) MoveCamera(delta types.Vec3) {
	p.params.Camera.Pos = p.params.Camera.Pos.Add(delta)
}

// RotateCamera adjusts the camera pitch and yaw. Pitch is clamped to avoid
// flipping over the poles; yaw wraps around.
func (p *Physics) RotateCamera(deltaPitch, deltaYaw float32) {
	cam := &p.params.Camera
	cam.Pitch = float32(math.Max(-maxPitch, math.Min(maxPitch, float64(cam.Pitch+deltaPitch))))
	cam.Yaw = float32(math.Remainder(float64(cam.Yaw+deltaYaw), 2*math.Pi))
}

// ScreenDimensions returns the current screen size.
func (p *Physics) ScreenDimensions() (uint32, uint32) {
	return p.params.ScreenDimensions[0], p.params.ScreenDimensions[1]
}

// SetScreenDimensions updates the screen size passed to the renderer.
func (p *Physics) SetScreenDimensions(width, height uint32) {
	p.params.ScreenDimensions = [2]uint32{width, height}
}

// Tick returns the number of the tick being processed. Tick is 0 during Init.
func (p *Physics) Tick() uint64 {
	return p.tick
}

// DeltaTime returns the fixed simulation tick period.
func (p *Physics) DeltaTime() time.Duration {
	return p.deltaTime
}
