package writer

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"encoding/gob"
	"os"
	"sync"
	"time"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrClosed is returned when writing to a closed archive.
var ErrClosed = errors.New("writer: archive is closed")

// ZipWriter streams compiled meshes into a zip archive. Each mesh buffer is
// stored as a separate little-endian entry laid out exactly as it is
// uploaded to the GPU. A gob-encoded manifest describing all meshes is
// written when the archive is closed.
type ZipWriter struct {
	logger log.Logger

	mu       sync.Mutex
	file     *os.File
	zw       *zip.Writer
	manifest scene.Manifest
	closed   bool
}

// Create a new zip archive at path.
func NewZipWriter(path string) (*ZipWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "writer: could not create %s", path)
	}

	w := &ZipWriter{
		logger: log.New("zip writer"),
		file:   f,
		zw:     zip.NewWriter(f),
	}
	w.logger.Noticef("writing compiled meshes to %s", path)
	return w, nil
}

// WriteMeshes appends a batch of meshes to the archive.
func (w *ZipWriter) WriteMeshes(ctx context.Context, meshes []*scene.Mesh) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	start := time.Now()
	for _, m := range meshes {
		if err := ctx.Err(); err != nil {
			return err
		}

		index := len(w.manifest.Meshes)
		if err := w.writeEntry(scene.VertexEntry(index), m.Vertices); err != nil {
			return err
		}
		if err := w.writeEntry(scene.TriangleEntry(index), m.Triangles); err != nil {
			return err
		}
		if err := w.writeEntry(scene.BvhEntry(index), m.Bvh); err != nil {
			return err
		}

		w.manifest.Meshes = append(w.manifest.Meshes, scene.ManifestEntry{
			Name:      m.Name,
			Vertices:  len(m.Vertices),
			Triangles: len(m.Triangles),
			BvhNodes:  len(m.Bvh),
			Bounds:    m.Bounds,
		})
	}

	w.logger.Infof("wrote batch of %d meshes in %d ms", len(meshes), time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (w *ZipWriter) writeEntry(name string, data interface{}) error {
	ew, err := w.zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "writer: could not create entry %s", name)
	}
	if err = binary.Write(ew, binary.LittleEndian, data); err != nil {
		return errors.Wrapf(err, "writer: could not encode entry %s", name)
	}
	return nil
}

// Close writes the manifest and closes the archive.
func (w *ZipWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	mw, createErr := w.zw.Create(scene.ManifestEntryName)
	if createErr == nil {
		if encErr := gob.NewEncoder(mw).Encode(&w.manifest); encErr != nil {
			err = multierr.Append(err, errors.Wrap(encErr, "writer: could not encode manifest"))
		}
	} else {
		err = multierr.Append(err, createErr)
	}

	err = multierr.Combine(err, w.zw.Close(), w.file.Close())
	if err == nil {
		w.logger.Noticef("archive contains %d meshes", len(w.manifest.Meshes))
	}
	return err
}
