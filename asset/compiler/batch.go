package compiler

import (
	"context"
	"runtime"

	"github.com/docker/go-units"
	"github.com/latr-engine/latr/asset/scene"
	"golang.org/x/sync/errgroup"
)

const (
	// The maximum number of meshes compiled by a single batch.
	MaxBatchMeshes = 24

	// The maximum estimated raw triangle memory held by a single batch.
	MaxBatchBytes = 256 * units.MiB
)

// TriBatch accumulates raw meshes and compiles them in parallel once the
// batch reaches its mesh count or memory cap.
type TriBatch struct {
	pending []RawMesh
	bytes   uint64

	// Caps; zero values select MaxBatchMeshes and MaxBatchBytes.
	meshLimit int
	byteLimit uint64
}

func (b *TriBatch) limits() (int, uint64) {
	meshLimit, byteLimit := b.meshLimit, b.byteLimit
	if meshLimit <= 0 {
		meshLimit = MaxBatchMeshes
	}
	if byteLimit == 0 {
		byteLimit = MaxBatchBytes
	}
	return meshLimit, byteLimit
}

// Returns the number of meshes waiting to be compiled.
func (b *TriBatch) Len() int {
	return len(b.pending)
}

// Returns the estimated memory held by the pending meshes.
func (b *TriBatch) ByteSize() uint64 {
	return b.bytes
}

// PushAndCheck queues a mesh for compilation. If adding the mesh would
// exceed the batch caps, the already pending meshes are compiled first and
// their results returned; the pushed mesh then starts a new batch. Otherwise
// PushAndCheck returns nil.
//
// A single mesh larger than MaxBatchBytes is still accepted into an empty
// batch.
func (b *TriBatch) PushAndCheck(ctx context.Context, m RawMesh) ([]*scene.Mesh, error) {
	estimate := m.ByteSize()
	meshLimit, byteLimit := b.limits()

	var flushed []*scene.Mesh
	if (len(b.pending) >= meshLimit || b.bytes+estimate > byteLimit) && len(b.pending) > 0 {
		var err error
		if flushed, err = b.Flush(ctx); err != nil {
			return nil, err
		}
	}

	b.pending = append(b.pending, m)
	b.bytes += estimate
	return flushed, nil
}

// Flush compiles all pending meshes in parallel and resets the batch. The
// returned meshes are in the order they were pushed.
func (b *TriBatch) Flush(ctx context.Context) ([]*scene.Mesh, error) {
	pending := b.pending
	b.pending = nil
	b.bytes = 0

	out := make([]*scene.Mesh, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range pending {
		i := i
		g.Go(func() error {
			m, err := BuildMesh(gctx, pending[i])
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FlushOption flushes the batch if it holds any meshes. It returns nil if the
// batch is empty.
func (b *TriBatch) FlushOption(ctx context.Context) ([]*scene.Mesh, error) {
	if len(b.pending) == 0 {
		return nil, nil
	}
	return b.Flush(ctx)
}
