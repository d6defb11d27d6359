package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEngineConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultEngine()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expected default config to be valid; got %v", err)
		}
		if cfg.FPSCap != 60 {
			t.Fatalf("expected default fps cap to be 60; got %d", cfg.FPSCap)
		}
		if cfg.Resolution != [2]uint32{640, 360} || cfg.NumRays != cfg.Resolution {
			t.Fatalf("expected resolution and ray count to default to 640x360; got %v and %v", cfg.Resolution, cfg.NumRays)
		}
		if cfg.RunMode != RunModeGUI {
			t.Fatalf("expected run mode to default to %q; got %q", RunModeGUI, cfg.RunMode)
		}
		if cfg.FramePeriod() != time.Second/60 {
			t.Fatalf("expected frame period %v; got %v", time.Second/60, cfg.FramePeriod())
		}
	})

	t.Run("load overrides", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "engine.toml", `
fps_cap = 30
run_mode = "headless"
model_file = "models.toml"
resolution = [320, 200]
`)
		cfg, err := LoadEngine(path)
		if err != nil {
			t.Fatal(err)
		}

		exp := DefaultEngine()
		exp.FPSCap = 30
		exp.RunMode = RunModeHeadless
		exp.ModelFile = filepath.Join(dir, "models.toml")
		exp.Resolution = [2]uint32{320, 200}
		if cfg.FPSCap != exp.FPSCap || cfg.TickRate != exp.TickRate || cfg.RunMode != exp.RunMode ||
			cfg.ModelFile != exp.ModelFile || cfg.Resolution != exp.Resolution {
			t.Fatalf("expected config %+v; got %+v", exp, cfg)
		}
	})

	t.Run("invalid run mode", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "engine.toml", `run_mode = "vr"`)
		if _, err := LoadEngine(path); !errors.Is(err, ErrInvalidRunMode) {
			t.Fatalf("expected to get ErrInvalidRunMode; got %v", err)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := DefaultEngine()
		cfg.LogLevel = "chatty"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error for an unknown log level")
		}
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "engine.toml", `fps_cap = "fast`)
		if _, err := LoadEngine(path); err == nil {
			t.Fatal("expected a decode error")
		}
	})
}

func TestModelConfig(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		cfg, err := ParseModelConfig(`
[directories]
model_folders = ["meshes", "/abs/meshes"]

[[models]]
name = "bunny"
path = "bunny.tri"

[[models]]
name = "remote"
path = "https://example.com/teapot.tri"
`, "/base")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.BaseDir() != "/base" {
			t.Fatalf("expected base dir /base; got %q", cfg.BaseDir())
		}

		expFolders := []string{filepath.Join("/base", "meshes"), "/abs/meshes"}
		if diff := cmp.Diff(expFolders, cfg.ModelFolders()); diff != "" {
			t.Fatalf("model folder mismatch (-want +got):\n%s", diff)
		}

		if len(cfg.Models) != 2 {
			t.Fatalf("expected 2 models; got %d", len(cfg.Models))
		}
		if got, exp := cfg.ResolvePath(cfg.Models[0].Path), filepath.Join("/base", "bunny.tri"); got != exp {
			t.Fatalf("expected relative model path to resolve to %q; got %q", exp, got)
		}
		if got, exp := cfg.ResolvePath(cfg.Models[1].Path), "https://example.com/teapot.tri"; got != exp {
			t.Fatalf("expected remote model path to be kept as %q; got %q", exp, got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		cfg, err := ParseModelConfig("", "")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Directories != nil || len(cfg.ModelFolders()) != 0 || len(cfg.Models) != 0 {
			t.Fatalf("expected an empty config; got %+v", cfg)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := LoadModelConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, ErrModelConfigNotFound) {
			t.Fatalf("expected to get ErrModelConfigNotFound; got %v", err)
		}
	})

	t.Run("load from file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "models.toml", "[directories]\nmodel_folders = [\"tris\"]\n")
		cfg, err := LoadModelConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{filepath.Join(dir, "tris")}, cfg.ModelFolders()); diff != "" {
			t.Fatalf("model folder mismatch (-want +got):\n%s", diff)
		}
	})
}
