package renderer

import (
	"bytes"
	"encoding/binary"

	"github.com/latr-engine/latr/engine"
	"github.com/pkg/errors"
)

// BufferSink packs uploaded frames into little-endian byte buffers laid out
// the way they would be copied into GPU uniform and storage buffers.
type BufferSink struct {
	Uniforms  bytes.Buffer
	Vertices  bytes.Buffer
	Triangles bytes.Buffer

	uploads int
	draws   int
	bytes   uint64
}

func (s *BufferSink) Upload(params engine.GpuUniformParams, buf *engine.TriangleBuffer) error {
	s.Uniforms.Reset()
	s.Vertices.Reset()
	s.Triangles.Reset()

	if err := binary.Write(&s.Uniforms, binary.LittleEndian, &params); err != nil {
		return errors.Wrap(err, "renderer: could not pack uniforms")
	}
	if err := binary.Write(&s.Vertices, binary.LittleEndian, buf.Vertices); err != nil {
		return errors.Wrap(err, "renderer: could not pack vertices")
	}
	if err := binary.Write(&s.Triangles, binary.LittleEndian, buf.Triangles); err != nil {
		return errors.Wrap(err, "renderer: could not pack triangles")
	}

	s.uploads++
	s.bytes += uint64(s.Uniforms.Len() + s.Vertices.Len() + s.Triangles.Len())
	return nil
}

func (s *BufferSink) Draw() error {
	s.draws++
	return nil
}

// Uploads returns the number of uploaded snapshots.
func (s *BufferSink) Uploads() int { return s.uploads }

// Draws returns the number of drawn frames.
func (s *BufferSink) Draws() int { return s.draws }

// BytesUploaded returns the total number of bytes packed across all uploads.
func (s *BufferSink) BytesUploaded() uint64 { return s.bytes }
