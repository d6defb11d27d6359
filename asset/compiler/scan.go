package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/latr-engine/latr/asset/mesh"
	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/config"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrModelDirNotFound is returned when a configured model folder does not exist.
	ErrModelDirNotFound = errors.New("compiler: model directory not found")

	// ErrInvalidDirectory is returned when a configured model folder is not a directory.
	ErrInvalidDirectory = errors.New("compiler: invalid model directory")
)

// The extension of files picked up when scanning model folders.
const triExtension = ".tri"

// A BufferWriter receives each batch of compiled meshes.
type BufferWriter interface {
	WriteMeshes(ctx context.Context, meshes []*scene.Mesh) error
}

// A MemoryWriter collects compiled meshes into an in-memory scene.
type MemoryWriter struct {
	mu    sync.Mutex
	scene scene.Scene

	// The number of WriteMeshes calls.
	batches int
}

// WriteMeshes appends meshes to the collected scene.
func (w *MemoryWriter) WriteMeshes(_ context.Context, meshes []*scene.Mesh) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scene.Meshes = append(w.scene.Meshes, meshes...)
	w.batches++
	return nil
}

// Scene returns the collected scene.
func (w *MemoryWriter) Scene() *scene.Scene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &scene.Scene{Meshes: append([]*scene.Mesh(nil), w.scene.Meshes...)}
}

// Batches returns the number of batches written so far.
func (w *MemoryWriter) Batches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.batches
}

// ScanReport summarizes a model build.
type ScanReport struct {
	// The number of model files that were read.
	Files int

	// The number of compiled meshes handed to the writer.
	Meshes int

	// The number of batches handed to the writer.
	Batches int

	// Errors for the model files that were skipped. Use multierr.Errors
	// to access the individual errors.
	Skipped error
}

type modelScanner struct {
	logger log.Logger
	writer BufferWriter
	batch  TriBatch
	report ScanReport
}

// BuildModels compiles all .tri files found in the configured model folders
// followed by the explicitly listed models and hands the compiled meshes to w
// in batches.
//
// A missing model folder or a folder path that is not a directory aborts the
// build. Files that cannot be read or parsed are logged, recorded in the
// returned report and skipped.
func BuildModels(ctx context.Context, cfg *config.ModelConfig, w BufferWriter) (*ScanReport, error) {
	s := &modelScanner{
		logger: log.New("model scanner"),
		writer: w,
	}

	start := time.Now()
	for _, dir := range cfg.ModelFolders() {
		if err := s.scanDir(ctx, dir); err != nil {
			return &s.report, err
		}
	}

	for _, model := range cfg.Models {
		path := cfg.ResolvePath(model.Path)
		if err := s.addFile(ctx, model.Name, path); err != nil {
			return &s.report, err
		}
	}

	flushed, err := s.batch.FlushOption(ctx)
	if err != nil {
		return &s.report, err
	}
	if err = s.write(ctx, flushed); err != nil {
		return &s.report, err
	}

	s.logger.Noticef(
		"built %d meshes from %d files in %d batches (%d ms); skipped %d files",
		s.report.Meshes, s.report.Files, s.report.Batches,
		time.Since(start).Nanoseconds()/1e6, len(multierr.Errors(s.report.Skipped)),
	)
	return &s.report, nil
}

func (s *modelScanner) scanDir(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrModelDirNotFound, "%s", dir)
		}
		// A path component below a regular file, e.g. models.tri/sub.
		if errors.Is(err, syscall.ENOTDIR) {
			return errors.Wrapf(ErrInvalidDirectory, "%s", dir)
		}
		return errors.Wrapf(err, "compiler: could not access model directory %s", dir)
	}
	if !info.IsDir() {
		return errors.Wrapf(ErrInvalidDirectory, "%s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "compiler: could not list model directory %s", dir)
	}

	s.logger.Noticef("scanning model directory %s (%d entries)", dir, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), triExtension) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := s.addFile(ctx, name, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Parse a model file and push it to the batch. Only context and writer
// errors are returned; file errors are recorded as skipped.
func (s *modelScanner) addFile(ctx context.Context, name, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tris, err := mesh.ReadTriFile(ctx, path)
	if err != nil {
		s.skip(path, err)
		return nil
	}
	s.report.Files++

	if len(tris) == 0 {
		s.skip(path, ErrEmptyMesh)
		return nil
	}

	raw := RawMesh{Name: name, Triangles: tris}
	s.logger.Debugf("queued %q: %d triangles (%s)", name, len(tris), units.BytesSize(float64(raw.ByteSize())))

	flushed, err := s.batch.PushAndCheck(ctx, raw)
	if err != nil {
		return err
	}
	return s.write(ctx, flushed)
}

func (s *modelScanner) skip(path string, err error) {
	s.logger.Warningf("skipping %s: %v", path, err)
	multierr.AppendInto(&s.report.Skipped, errors.Wrapf(err, "%s", path))
}

func (s *modelScanner) write(ctx context.Context, meshes []*scene.Mesh) error {
	if len(meshes) == 0 {
		return nil
	}
	if err := s.writer.WriteMeshes(ctx, meshes); err != nil {
		return errors.Wrap(err, "compiler: could not write mesh batch")
	}
	s.report.Meshes += len(meshes)
	s.report.Batches++
	return nil
}
