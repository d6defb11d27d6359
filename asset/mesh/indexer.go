package mesh

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Record counts below this threshold are sorted on the calling goroutine.
const parallelSortThreshold = 1 << 15

// A triangle corner position tagged with its owning triangle.
type cornerRecord struct {
	pos    types.Vec3
	tri    uint32
	corner uint8
}

// Order records by position using the IEEE total order. Ties are broken by
// the record emission order so the result does not depend on how the sort
// was split across workers.
func cmpRecords(a, b cornerRecord) int {
	if c := types.TotalCmpVec3(a.pos, b.pos); c != 0 {
		return c
	}
	switch {
	case a.tri < b.tri:
		return -1
	case a.tri > b.tri:
		return 1
	case a.corner < b.corner:
		return -1
	case a.corner > b.corner:
		return 1
	}
	return 0
}

// Index converts a triangle soup into a deduplicated vertex list and a list
// of indexed triangles.
//
// All triangle corners are sorted by position and swept once; a new vertex
// is emitted whenever a corner position differs from the one preceding it.
// Each corner writes the current vertex index into the next free slot of its
// owning triangle. Positions are compared bitwise so NaN and signed zero
// coordinates never break the grouping.
//
// Index panics if a triangle does not receive exactly 3 vertex indices.
func Index(raw []RawTriangle) ([]scene.Vertex, []scene.TriangleData) {
	records := make([]cornerRecord, 0, len(raw)*3)
	for triIndex := range raw {
		for corner := 0; corner < 3; corner++ {
			records = append(records, cornerRecord{
				pos:    raw[triIndex].Corner(corner),
				tri:    uint32(triIndex),
				corner: uint8(corner),
			})
		}
	}
	sortRecords(records)

	triangles := make([]scene.TriangleData, len(raw))
	for i := range triangles {
		triangles[i].RGBA = scene.DefaultTriangleRGBA
	}
	tally := make([]uint8, len(raw))

	var vertices []scene.Vertex
	for i, rec := range records {
		if i == 0 || types.TotalCmpVec3(rec.pos, records[i-1].pos) != 0 {
			vertices = append(vertices, scene.VertexFromVec3(rec.pos))
		}

		if tally[rec.tri] >= 3 {
			panic(fmt.Sprintf("mesh: triangle %d received more than 3 vertices", rec.tri))
		}
		triangles[rec.tri].Vertices[tally[rec.tri]] = uint32(len(vertices) - 1)
		tally[rec.tri]++
	}

	for triIndex, count := range tally {
		if count != 3 {
			panic(fmt.Sprintf("mesh: triangle %d received %d vertices; expected 3", triIndex, count))
		}
	}

	return slices.Clip(vertices), triangles
}

// Sort records in parallel chunks and merge the sorted runs.
func sortRecords(records []cornerRecord) {
	workers := runtime.GOMAXPROCS(0)
	if len(records) < parallelSortThreshold || workers < 2 {
		slices.SortFunc(records, cmpRecords)
		return
	}

	chunkSize := (len(records) + workers - 1) / workers
	var runs [][]cornerRecord
	var g errgroup.Group
	for start := 0; start < len(records); start += chunkSize {
		run := records[start:min(start+chunkSize, len(records))]
		runs = append(runs, run)
		g.Go(func() error {
			slices.SortFunc(run, cmpRecords)
			return nil
		})
	}
	_ = g.Wait()

	// Merge pairs of adjacent runs until a single run remains. Runs are
	// always contiguous in records so the merged output is copied back in
	// place.
	buf := make([]cornerRecord, len(records))
	for len(runs) > 1 {
		merged := make([][]cornerRecord, 0, (len(runs)+1)/2)
		for i := 0; i < len(runs); i += 2 {
			if i+1 == len(runs) {
				merged = append(merged, runs[i])
				continue
			}
			left, right := runs[i], runs[i+1]
			out := mergeRuns(buf[:0], left, right)
			run := left[:len(out)]
			copy(run, out)
			merged = append(merged, run)
		}
		runs = merged
	}
}

func mergeRuns(dst, left, right []cornerRecord) []cornerRecord {
	for len(left) > 0 && len(right) > 0 {
		if cmpRecords(right[0], left[0]) < 0 {
			dst = append(dst, right[0])
			right = right[1:]
		} else {
			dst = append(dst, left[0])
			left = left[1:]
		}
	}
	dst = append(dst, left...)
	return append(dst, right...)
}

// Check verifies that vertices and triangles are a faithful indexing of raw:
// vertices are strictly increasing under the total order (and therefore
// unique), every triangle index is in range and every triangle corner
// resolves to the bit-identical raw position.
func Check(raw []RawTriangle, vertices []scene.Vertex, triangles []scene.TriangleData) error {
	if len(raw) != len(triangles) {
		return errors.Errorf("mesh: expected %d triangles; got %d", len(raw), len(triangles))
	}

	for i := 1; i < len(vertices); i++ {
		if types.TotalCmpVec3(vertices[i-1].Vec3(), vertices[i].Vec3()) >= 0 {
			return errors.Errorf("mesh: vertex %d is not strictly greater than vertex %d", i, i-1)
		}
	}

	for triIndex, tri := range triangles {
		// Vertex slots are filled in sorted order so compare the corner
		// positions as multisets.
		want := []types.Vec3{raw[triIndex].Corner(0), raw[triIndex].Corner(1), raw[triIndex].Corner(2)}
		got := make([]types.Vec3, 0, 3)
		for _, vIndex := range tri.Vertices {
			if int(vIndex) >= len(vertices) {
				return errors.Errorf("mesh: triangle %d references out of range vertex %d", triIndex, vIndex)
			}
			got = append(got, vertices[vIndex].Vec3())
		}
		slices.SortFunc(want, types.TotalCmpVec3)
		slices.SortFunc(got, types.TotalCmpVec3)
		for i := range want {
			if types.TotalCmpVec3(want[i], got[i]) != 0 {
				return errors.Errorf("mesh: triangle %d corner %v does not match raw position %v", triIndex, got[i], want[i])
			}
		}
	}
	return nil
}

// Primitives derives the bounding box and centroid of every indexed triangle
// from its resolved corner positions.
func Primitives(vertices []scene.Vertex, triangles []scene.TriangleData) ([]types.AABB, []types.Vec3) {
	boxes := make([]types.AABB, len(triangles))
	centroids := make([]types.Vec3, len(triangles))
	for i, tri := range triangles {
		a := vertices[tri.Vertices[0]].Vec3()
		b := vertices[tri.Vertices[1]].Vec3()
		c := vertices[tri.Vertices[2]].Vec3()
		boxes[i] = types.AABBFromPoints(a, b, c)
		centroids[i] = a.Add(b).Add(c).Mul(1.0 / 3.0)
	}
	return boxes, centroids
}
