package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/asset/scene/reader"
	"github.com/latr-engine/latr/config"
	"github.com/latr-engine/latr/engine"
	"github.com/latr-engine/latr/types"
)

func TestCompileArchive(t *testing.T) {
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "models")
	if err := os.Mkdir(modelDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string]string{
		"tri.tri":    "0 0 0 3 0 0 0 3 3",
		"broken.tri": "0 0 0",
	} {
		if err := os.WriteFile(filepath.Join(modelDir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.ParseModelConfig("[directories]\nmodel_folders = [\"models\"]\n", dir)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "meshes.zip")
	if err = compileArchive(context.Background(), cfg, out); err != nil {
		t.Fatal(err)
	}

	sc, err := reader.ReadScene(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Meshes) != 1 || sc.Meshes[0].Name != "tri" {
		t.Fatalf("expected the archive to only contain mesh \"tri\"; got %d meshes", len(sc.Meshes))
	}

	// The temporary archive is renamed into place.
	if _, err = os.Stat(filepath.Join(dir, ".meshes.zip.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected the temporary archive to be gone; got %v", err)
	}

	t.Run("missing folder removes the partial archive", func(t *testing.T) {
		cfg, err := config.ParseModelConfig("[directories]\nmodel_folders = [\"missing\"]\n", dir)
		if err != nil {
			t.Fatal(err)
		}

		failedOut := filepath.Join(dir, "failed.zip")
		if err = compileArchive(context.Background(), cfg, failedOut); err == nil {
			t.Fatal("expected compiling a missing folder to fail")
		}

		for _, path := range []string{filepath.Join(dir, ".failed.zip.tmp"), failedOut} {
			if _, err = os.Stat(path); !os.IsNotExist(err) {
				t.Fatalf("expected %s to be removed; got %v", path, err)
			}
		}
	})
}

func TestOrbitCamera(t *testing.T) {
	sc := &scene.Scene{Meshes: []*scene.Mesh{{
		Vertices:  []scene.Vertex{{X: 0}, {X: 2}, {Y: 2}},
		Triangles: []scene.TriangleData{{Vertices: [3]uint32{0, 1, 2}}},
		Bounds:    types.AABBFromPoints(types.XYZ(0, 0, 0), types.XYZ(2, 2, 0)),
	}}}
	loop := &orbitCamera{scene: sc, speed: 1}

	p := engine.NewPhysics(64, 64)
	if err := loop.Init(p); err != nil {
		t.Fatal(err)
	}
	if got := len(p.Triangles().Triangles); got != 1 {
		t.Fatalf("expected the scene triangle to be loaded; got %d triangles", got)
	}

	// The camera starts behind the scene at the height of its center.
	if pos := p.Camera().Pos; pos[0] >= 0 || pos[1] != 1 {
		t.Fatalf("expected camera behind the scene at y=1; got %v", pos)
	}

	t.Run("empty scene", func(t *testing.T) {
		p := engine.NewPhysics(64, 64)
		if err := (&orbitCamera{scene: &scene.Scene{}}).Init(p); err != nil {
			t.Fatal(err)
		}
		if pos := p.Camera().Pos; pos != (types.Vec3{}) {
			t.Fatalf("expected camera at the origin; got %v", pos)
		}
	})
}
