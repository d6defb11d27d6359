package bvh

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/latr-engine/latr/log"
	"github.com/latr-engine/latr/types"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

const (
	// The number of buckets used when evaluating split candidates along
	// an axis.
	binCount = 12

	// Work lists smaller than this are never handed to another goroutine.
	defaultParallelCutoff = 1024
)

// A binary BVH node. Leaf nodes reference exactly one primitive; branch
// nodes own exactly two children.
type Node struct {
	Bounds types.AABB

	Left, Right *Node

	// The referenced primitive. Only valid for leaf nodes.
	Prim uint32
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Left == nil
}

// Options control the parallelism of the BVH builder.
type Options struct {
	// The number of extra goroutines that may build subtrees concurrently.
	// When all tokens are in use subtrees are built inline.
	Workers int64

	// Work lists smaller than this are always built inline.
	ParallelCutoff int
}

// DefaultOptions returns builder options that use all available CPUs.
func DefaultOptions() Options {
	return Options{
		Workers:        int64(runtime.GOMAXPROCS(0)),
		ParallelCutoff: defaultParallelCutoff,
	}
}

// An accumulated bucket for a single axis.
type bin struct {
	bounds types.AABB
	count  int
}

type splitCandidate struct {
	axis     types.Axis
	position int
	cost     float32
}

type stats struct {
	nodes    atomic.Int64
	leafs    atomic.Int64
	forks    atomic.Int64
	maxDepth atomic.Int64
}

func (s *stats) trackDepth(depth int) {
	for {
		cur := s.maxDepth.Load()
		if int64(depth) <= cur || s.maxDepth.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}

type builder struct {
	logger log.Logger

	// Per primitive bounds and centroids. Shared read-only by all workers.
	boxes     []types.AABB
	centroids []types.Vec3

	sem            *semaphore.Weighted
	parallelCutoff int

	stats stats
}

// Build a binary BVH over the primitives listed in prims using the default
// options. See BuildWithOptions.
func Build(boxes []types.AABB, centroids []types.Vec3, prims []uint32) *Node {
	return BuildWithOptions(boxes, centroids, prims, DefaultOptions())
}

// Build a binary BVH over the primitives listed in prims.
//
// The builder evaluates binCount buckets per axis and picks the split that
// minimizes the surface area heuristic:
// cost = left count * left bbox area + right count * right bbox area.
// If no split separates the centroids, the primitives are split at the median
// along the axis with the largest extent.
//
// The builder takes ownership of prims and reorders it in place. It returns
// nil if prims is empty.
func BuildWithOptions(boxes []types.AABB, centroids []types.Vec3, prims []uint32, opts Options) *Node {
	if len(prims) == 0 {
		return nil
	}

	b := &builder{
		logger:         log.New("bvh builder"),
		boxes:          boxes,
		centroids:      centroids,
		sem:            semaphore.NewWeighted(max(opts.Workers, 1)),
		parallelCutoff: max(opts.ParallelCutoff, 2),
	}

	start := time.Now()
	root := b.build(prims, 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, primitives: %d, maxDepth: %d, nodes: %d, leafs: %d, forks: %d",
		time.Since(start).Nanoseconds()/1e6, len(prims),
		b.stats.maxDepth.Load(), b.stats.nodes.Load(), b.stats.leafs.Load(), b.stats.forks.Load(),
	)
	return root
}

// Build a subtree for the given primitive slice.
func (b *builder) build(prims []uint32, depth int) *Node {
	b.stats.trackDepth(depth)
	b.stats.nodes.Inc()

	if len(prims) == 1 {
		b.stats.leafs.Inc()
		return &Node{
			Bounds: b.boxes[prims[0]],
			Prim:   prims[0],
		}
	}

	mid := b.partition(prims)
	leftPrims, rightPrims := prims[:mid], prims[mid:]

	var left, right *Node
	if len(rightPrims) >= b.parallelCutoff && b.sem.TryAcquire(1) {
		b.stats.forks.Inc()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer b.sem.Release(1)
			right = b.build(rightPrims, depth+1)
		}()
		left = b.build(leftPrims, depth+1)
		wg.Wait()
	} else {
		left = b.build(leftPrims, depth+1)
		right = b.build(rightPrims, depth+1)
	}

	return &Node{
		Bounds: types.Union(left.Bounds, right.Bounds),
		Left:   left,
		Right:  right,
	}
}

// Reorder prims so that prims[:mid] and prims[mid:] form the two children of
// a split and return mid. Both sides are guaranteed to be non-empty.
func (b *builder) partition(prims []uint32) int {
	centroidBounds := types.EmptyAABB()
	for _, p := range prims {
		centroidBounds.GrowPoint(b.centroids[p])
	}

	best, ok := b.findSplit(prims, centroidBounds)
	if !ok {
		return b.medianSplit(prims)
	}

	axis := best.axis
	lo, extent := centroidBounds.Min[axis], centroidBounds.Extent()[axis]

	// Lomuto partition on the same bin assignment findSplit counted, so both
	// sides match the chosen candidate and are non-empty.
	mid := 0
	for j := range prims {
		if binIndex(b.centroids[prims[j]][axis], lo, extent) < best.position {
			prims[mid], prims[j] = prims[j], prims[mid]
			mid++
		}
	}
	return mid
}

// Evaluate the binned SAH for all axes and return the cheapest split. Returns
// false if no candidate leaves both sides non-empty.
func (b *builder) findSplit(prims []uint32, centroidBounds types.AABB) (splitCandidate, bool) {
	var (
		best  splitCandidate
		found bool
	)

	extent := centroidBounds.Extent()
	for axis := types.XAxis; axis <= types.ZAxis; axis++ {
		if !(extent[axis] > 0) {
			continue
		}

		var bins [binCount]bin
		for i := range bins {
			bins[i].bounds = types.EmptyAABB()
		}
		for _, p := range prims {
			index := binIndex(b.centroids[p][axis], centroidBounds.Min[axis], extent[axis])
			bins[index].bounds.Grow(b.boxes[p])
			bins[index].count++
		}

		// leftBounds[i] and leftCounts[i] accumulate bins [0, i) while
		// rightBounds[i] and rightCounts[i] accumulate bins [i, binCount).
		var (
			leftBounds, rightBounds [binCount + 1]types.AABB
			leftCounts, rightCounts [binCount + 1]int
		)
		leftBounds[0] = types.EmptyAABB()
		for i := 0; i < binCount; i++ {
			leftBounds[i+1] = types.Union(leftBounds[i], bins[i].bounds)
			leftCounts[i+1] = leftCounts[i] + bins[i].count
		}
		rightBounds[binCount] = types.EmptyAABB()
		for i := binCount - 1; i >= 0; i-- {
			rightBounds[i] = types.Union(rightBounds[i+1], bins[i].bounds)
			rightCounts[i] = rightCounts[i+1] + bins[i].count
		}

		for pos := 1; pos < binCount; pos++ {
			if leftCounts[pos] == 0 || rightCounts[pos] == 0 {
				continue
			}
			cost := leftBounds[pos].SurfaceArea()*float32(leftCounts[pos]) +
				rightBounds[pos].SurfaceArea()*float32(rightCounts[pos])
			if !found || cost < best.cost {
				best = splitCandidate{axis: axis, position: pos, cost: cost}
				found = true
			}
		}
	}

	return best, found
}

// Map a centroid coordinate to its bucket.
func binIndex(c, lo, extent float32) int {
	f := (c - lo) / extent * binCount
	if !(f >= 0) {
		return 0
	}
	if f >= binCount-1 {
		return binCount - 1
	}
	index := int(f)
	if index < 0 || index >= binCount {
		panic(fmt.Sprintf("bvh: bin index %d out of range", index))
	}
	return index
}

// Sort prims along the axis with the largest primitive bounds extent using
// (centroid, primitive index) as the key and cut the list in half.
func (b *builder) medianSplit(prims []uint32) int {
	bounds := types.EmptyAABB()
	for _, p := range prims {
		bounds.Grow(b.boxes[p])
	}
	axis := bounds.Extent().MaxAxis()

	slices.SortFunc(prims, func(p1, p2 uint32) int {
		if c := types.TotalCmp(b.centroids[p1][axis], b.centroids[p2][axis]); c != 0 {
			return c
		}
		switch {
		case p1 < p2:
			return -1
		case p1 > p2:
			return 1
		}
		return 0
	})
	return len(prims) / 2
}
