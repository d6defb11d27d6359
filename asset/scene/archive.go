package scene

import (
	"fmt"

	"github.com/latr-engine/latr/types"
)

// The name of the gob-encoded manifest inside a compiled mesh archive.
const ManifestEntryName = "manifest.gob"

// A Manifest describes the meshes stored in a compiled mesh archive.
type Manifest struct {
	Meshes []ManifestEntry
}

// A ManifestEntry describes the buffers of a single archived mesh.
type ManifestEntry struct {
	Name      string
	Vertices  int
	Triangles int
	BvhNodes  int
	Bounds    types.AABB
}

// Archive entry names for the buffers of the n-th mesh.
func VertexEntry(n int) string   { return fmt.Sprintf("meshes/%d/vertices.bin", n) }
func TriangleEntry(n int) string { return fmt.Sprintf("meshes/%d/triangles.bin", n) }
func BvhEntry(n int) string      { return fmt.Sprintf("meshes/%d/bvh.bin", n) }
