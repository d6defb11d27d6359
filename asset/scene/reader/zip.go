package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"io"
	"time"

	"github.com/latr-engine/latr/asset"
	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled meshes from a zip archive.
func (p *zipSceneReader) Read(ctx context.Context, sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`loading compiled meshes from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "reader: %s is not a valid archive", sceneRes.Path())
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var manifest scene.Manifest
	if err = decodeEntry(files, scene.ManifestEntryName, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(&manifest)
	}); err != nil {
		return nil, err
	}

	sc := &scene.Scene{Meshes: make([]*scene.Mesh, len(manifest.Meshes))}
	for index, entry := range manifest.Meshes {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		m := &scene.Mesh{
			Name:      entry.Name,
			Vertices:  make([]scene.Vertex, entry.Vertices),
			Triangles: make([]scene.TriangleData, entry.Triangles),
			Bvh:       make([]scene.BvhNode, entry.BvhNodes),
			Bounds:    entry.Bounds,
		}
		if err = readBuffer(files, scene.VertexEntry(index), m.Vertices); err != nil {
			return nil, err
		}
		if err = readBuffer(files, scene.TriangleEntry(index), m.Triangles); err != nil {
			return nil, err
		}
		if err = readBuffer(files, scene.BvhEntry(index), m.Bvh); err != nil {
			return nil, err
		}
		sc.Meshes[index] = m
	}

	p.logger.Noticef("loaded %d meshes in %d ms", len(sc.Meshes), time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

func readBuffer(files map[string]*zip.File, name string, out interface{}) error {
	if binary.Size(out) == 0 {
		return nil
	}
	return decodeEntry(files, name, func(r io.Reader) error {
		return binary.Read(r, binary.LittleEndian, out)
	})
}

func decodeEntry(files map[string]*zip.File, name string, decode func(io.Reader) error) error {
	f, ok := files[name]
	if !ok {
		return errors.Errorf("reader: archive is missing entry %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err = decode(rc); err != nil {
		return errors.Wrapf(err, "reader: failed to load %s", name)
	}
	return nil
}
