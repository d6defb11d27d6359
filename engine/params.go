package engine

import (
	"math"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/types"
)

// EngineCamera is the simulation side camera state. Pitch and yaw are in
// radians.
type EngineCamera struct {
	Pos   types.Vec3
	Pitch float32
	Yaw   float32
}

// EngineParams holds the per tick state handed to the renderer alongside the
// triangle buffer.
type EngineParams struct {
	Camera           EngineCamera
	ScreenDimensions [2]uint32

	// The tick sequence number that produced these params. Set when the
	// params are published.
	Seq uint64
}

// TriangleBuffer holds the live geometry mutated by the simulation.
type TriangleBuffer struct {
	Vertices  []scene.Vertex
	Triangles [][3]uint32
}

// Clear empties the buffer while keeping its capacity.
func (b *TriangleBuffer) Clear() {
	b.Vertices = b.Vertices[:0]
	b.Triangles = b.Triangles[:0]
}

// CopyFrom replaces the buffer contents with a copy of src, reusing the
// existing capacity where possible.
func (b *TriangleBuffer) CopyFrom(src *TriangleBuffer) {
	b.Vertices = append(b.Vertices[:0], src.Vertices...)
	b.Triangles = append(b.Triangles[:0], src.Triangles...)
}

// AppendMesh appends the geometry of a compiled mesh, offsetting its vertex
// indices past the vertices already in the buffer.
func (b *TriangleBuffer) AppendMesh(m *scene.Mesh) {
	offset := uint32(len(b.Vertices))
	b.Vertices = append(b.Vertices, m.Vertices...)
	for _, tri := range m.Triangles {
		b.Triangles = append(b.Triangles, [3]uint32{
			tri.Vertices[0] + offset,
			tri.Vertices[1] + offset,
			tri.Vertices[2] + offset,
		})
	}
}

// GpuUniformParams is the uniform block consumed by the tracing shader. All
// vectors are padded to 16 bytes.
type GpuUniformParams struct {
	CameraPos     [4]float32
	CameraForward [4]float32
	CameraUp      [4]float32
	CameraRight   [4]float32
	ScreenDims    [2]uint32
	Padding       [2]float32
}

// FromEngineParams derives the shader uniforms from the engine params. Y is
// up; at zero pitch and yaw the camera looks along +X.
func FromEngineParams(p EngineParams) GpuUniformParams {
	cam := p.Camera
	sinP, cosP := math.Sincos(float64(cam.Pitch))
	sinY, cosY := math.Sincos(float64(cam.Yaw))

	return GpuUniformParams{
		CameraPos:     [4]float32{cam.Pos[0], cam.Pos[1], cam.Pos[2], 0},
		CameraForward: [4]float32{float32(cosY * cosP), float32(sinP), float32(-sinY * cosP), 0},
		CameraRight:   [4]float32{float32(-sinY), 0, float32(-cosY), 0},
		CameraUp:      [4]float32{float32(-cosY * sinP), float32(cosP), float32(sinY * sinP), 0},
		ScreenDims:    p.ScreenDimensions,
	}
}
