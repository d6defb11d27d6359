package compiler

import (
	"context"
	"time"

	"github.com/latr-engine/latr/asset/compiler/bvh"
	"github.com/latr-engine/latr/asset/mesh"
	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
)

// ErrEmptyMesh is returned when trying to compile a mesh without triangles.
var ErrEmptyMesh = errors.New("compiler: mesh contains no triangles")

// The size in bytes of a raw triangle; used for estimating batch memory.
const rawTriangleSize = 36

// A named triangle soup waiting to be compiled.
type RawMesh struct {
	Name      string
	Triangles []mesh.RawTriangle
}

// The estimated number of bytes held by the mesh triangles.
func (m RawMesh) ByteSize() uint64 {
	return uint64(len(m.Triangles)) * rawTriangleSize
}

var compilerLogger = log.New("mesh compiler")

// Compile a raw triangle soup into an indexed mesh with a flattened BVH.
//
// Compilation runs the following steps:
// - deduplicate vertices and index triangles
// - calculate the bounds and centroid of each triangle
// - build a binary BVH over the triangles
// - flatten the BVH into 4-wide GPU nodes
func BuildMesh(ctx context.Context, raw RawMesh) (*scene.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw.Triangles) == 0 {
		return nil, errors.Wrapf(ErrEmptyMesh, "%s", raw.Name)
	}

	start := time.Now()
	vertices, triangles := mesh.Index(raw.Triangles)
	indexTime := time.Since(start)

	boxes, centroids := mesh.Primitives(vertices, triangles)
	prims := make([]uint32, len(triangles))
	for i := range prims {
		prims[i] = uint32(i)
	}
	root := bvh.Build(boxes, centroids, prims)

	out := &scene.Mesh{
		Name:      raw.Name,
		Vertices:  vertices,
		Triangles: triangles,
		Bvh:       bvh.Flatten(root),
		Bounds:    root.Bounds,
	}

	compilerLogger.Infof(
		"compiled %q in %d ms (index: %d ms); triangles: %d, vertices: %d, bvh nodes: %d",
		raw.Name, time.Since(start).Nanoseconds()/1e6, indexTime.Nanoseconds()/1e6,
		len(triangles), len(vertices), len(out.Bvh),
	)
	return out, nil
}
