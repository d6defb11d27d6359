package scene

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/docker/go-units"
	"github.com/latr-engine/latr/types"
	"github.com/olekukonko/tablewriter"
)

// The number of children stored by each BvhNode.
const BvhWidth = 4

// DefaultTriangleRGBA is the color assigned to triangles loaded from files
// that carry no material information.
var DefaultTriangleRGBA = [4]float32{0.5, 0.5, 1.0, 1.0}

// BVH nodes hold up to 4 children. Child bounds are packed as parallel
// arrays so that a traversal kernel can test all 4 boxes at once. Each child
// slot is described by an index whose value depends on the child type:
//
// - >0 points to another node in the same node list
// - <0 references a leaf primitive p encoded as -(p+1)
// - 0 marks an unused slot
//
// Node 0 is the entry node of the list. Its first slot references the tree
// root and it is never referenced by another node, which is what allows 0 to
// double as the unused marker.
type BvhNode struct {
	MinX [BvhWidth]float32
	MinY [BvhWidth]float32
	MinZ [BvhWidth]float32
	MaxX [BvhWidth]float32
	MaxY [BvhWidth]float32
	MaxZ [BvhWidth]float32

	Indices [BvhWidth]int32
}

// Encode a primitive index as a leaf child index.
func EncodeLeaf(primIndex uint32) int32 {
	return -(int32(primIndex) + 1)
}

// Decode a child index. Returns the primitive index and true if the index
// references a leaf.
func DecodeLeaf(index int32) (uint32, bool) {
	if index >= 0 {
		return 0, false
	}
	return uint32(-index - 1), true
}

// Set the bounding box and index of a child slot.
func (n *BvhNode) SetChild(slot int, bbox types.AABB, index int32) {
	n.MinX[slot], n.MinY[slot], n.MinZ[slot] = bbox.Min[0], bbox.Min[1], bbox.Min[2]
	n.MaxX[slot], n.MaxY[slot], n.MaxZ[slot] = bbox.Max[0], bbox.Max[1], bbox.Max[2]
	n.Indices[slot] = index
}

// Get the bounding box and index of a child slot.
func (n *BvhNode) Child(slot int) (types.AABB, int32) {
	return types.AABB{
		Min: types.Vec3{n.MinX[slot], n.MinY[slot], n.MinZ[slot]},
		Max: types.Vec3{n.MaxX[slot], n.MaxY[slot], n.MaxZ[slot]},
	}, n.Indices[slot]
}

// Get the number of used child slots.
func (n *BvhNode) ChildCount() int {
	count := 0
	for _, index := range n.Indices {
		if index != 0 {
			count++
		}
	}
	return count
}

// A deduplicated vertex position.
type Vertex struct {
	X, Y, Z float32
}

// Create a vertex from a vector.
func VertexFromVec3(v types.Vec3) Vertex {
	return Vertex{v[0], v[1], v[2]}
}

// Get vertex position.
func (v Vertex) Vec3() types.Vec3 {
	return types.Vec3{v.X, v.Y, v.Z}
}

// An indexed triangle. Vertices index into the mesh vertex list.
type TriangleData struct {
	Vertices [3]uint32
	_        uint32

	RGBA [4]float32
}

// A compiled mesh: indexed geometry and the flattened BVH built over its
// triangles. Leaf references in Bvh index into Triangles.
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Triangles []TriangleData
	Bvh       []BvhNode

	// Bounds of all mesh triangles.
	Bounds types.AABB
}

// A set of compiled meshes ready to be uploaded to the GPU.
type Scene struct {
	Meshes []*Mesh
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Mesh", "Vertices", "Triangles", "BVH nodes", "Size"})

	var totalVertices, totalTriangles, totalNodes int
	var totalSize float64
	for _, m := range sc.Meshes {
		size := byteSize(m.Vertices, m.Triangles, m.Bvh)
		table.Append([]string{
			m.Name,
			fmt.Sprint(len(m.Vertices)),
			fmt.Sprint(len(m.Triangles)),
			fmt.Sprint(len(m.Bvh)),
			units.BytesSize(size),
		})
		totalVertices += len(m.Vertices)
		totalTriangles += len(m.Triangles)
		totalNodes += len(m.Bvh)
		totalSize += size
	}
	table.SetFooter([]string{
		fmt.Sprintf("Total (%d)", len(sc.Meshes)),
		fmt.Sprint(totalVertices),
		fmt.Sprint(totalTriangles),
		fmt.Sprint(totalNodes),
		units.BytesSize(totalSize),
	})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices.
func byteSize(items ...interface{}) float64 {
	var totalBytes float64
	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}
		totalBytes += float64(int(v.Type().Elem().Size()) * v.Len())
	}
	return totalBytes
}
