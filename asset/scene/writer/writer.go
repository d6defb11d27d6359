package writer

import (
	"context"

	"github.com/latr-engine/latr/asset/scene"
	"go.uber.org/multierr"
)

// The Writer interface is implemented by all mesh archive writers. Writers
// receive meshes in batches and must be closed to finalize the archive.
type Writer interface {
	// Append a batch of compiled meshes.
	WriteMeshes(context.Context, []*scene.Mesh) error

	// Finalize the archive.
	Close() error
}

// Write all scene meshes to a zip archive.
func WriteScene(ctx context.Context, sc *scene.Scene, filename string) (err error) {
	w, err := NewZipWriter(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()

	return w.WriteMeshes(ctx, sc.Meshes)
}
