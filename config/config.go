// Package config defines the engine and model configuration files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
)

// RunMode selects how the engine presents frames.
type RunMode string

const (
	// RunModeGUI renders into a window.
	RunModeGUI RunMode = "gui"
	// RunModeHeadless runs the full simulation and render loops without a
	// window; frames are handed to an in-process sink.
	RunModeHeadless RunMode = "headless"
)

var (
	// ErrModelConfigNotFound is returned when the model config file does not exist.
	ErrModelConfigNotFound = errors.New("config: model config file not found")

	// ErrInvalidRunMode is returned for an unknown run_mode value.
	ErrInvalidRunMode = errors.New("config: invalid run mode")
)

var logger = log.New("config")

// Engine holds the settings for running the engine.
type Engine struct {
	FPSCap     uint32    `toml:"fps_cap"`
	TickRate   uint32    `toml:"tick_rate"`
	Resolution [2]uint32 `toml:"resolution"`
	NumRays    [2]uint32 `toml:"num_rays"`
	RunMode    RunMode   `toml:"run_mode"`
	ModelFile  string    `toml:"model_file"`
	LogLevel   string    `toml:"log_level"`
}

// DefaultEngine returns the default engine settings: a 640x360 window capped
// at 60 fps with one ray per pixel.
func DefaultEngine() Engine {
	return Engine{
		FPSCap:     60,
		TickRate:   60,
		Resolution: [2]uint32{640, 360},
		NumRays:    [2]uint32{640, 360},
		RunMode:    RunModeGUI,
		LogLevel:   "notice",
	}
}

// AttachModels sets the model config file loaded by the engine.
func (e *Engine) AttachModels(path string) {
	e.ModelFile = path
}

// FramePeriod returns the minimum duration of a rendered frame.
func (e Engine) FramePeriod() time.Duration {
	return periodFor(e.FPSCap)
}

// TickPeriod returns the duration of a simulation tick.
func (e Engine) TickPeriod() time.Duration {
	return periodFor(e.TickRate)
}

func periodFor(rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}

// Validate checks the engine settings.
func (e Engine) Validate() error {
	switch e.RunMode {
	case RunModeGUI, RunModeHeadless:
	default:
		return errors.Wrapf(ErrInvalidRunMode, "%q", e.RunMode)
	}
	if e.TickRate == 0 {
		return errors.New("config: tick_rate must be greater than 0")
	}
	if e.Resolution[0] == 0 || e.Resolution[1] == 0 {
		return errors.Errorf("config: invalid resolution %dx%d", e.Resolution[0], e.Resolution[1])
	}
	if _, err := log.ParseLevel(e.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadEngine reads engine settings from a TOML file. Settings missing from
// the file keep their default values. A relative model_file is resolved
// against the directory of the engine config file.
func LoadEngine(path string) (Engine, error) {
	cfg := DefaultEngine()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: could not load engine config %s", path)
	}
	warnUndecoded(path, md)

	if cfg.ModelFile != "" {
		cfg.ModelFile = resolvePath(filepath.Dir(path), cfg.ModelFile)
	}
	return cfg, cfg.Validate()
}

// DirectoriesConfig lists folders that are scanned for model files.
type DirectoriesConfig struct {
	ModelFolders []string `toml:"model_folders"`
}

// ExplicitModel references a single model file.
type ExplicitModel struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// ModelConfig describes the models loaded by the engine.
type ModelConfig struct {
	Directories *DirectoriesConfig `toml:"directories"`
	Models      []ExplicitModel    `toml:"models"`

	// Relative paths are resolved against this directory.
	baseDir string
}

// LoadModelConfig reads a model config TOML file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrModelConfigNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "config: could not read model config %s", path)
	}

	return ParseModelConfig(string(data), filepath.Dir(path))
}

// ParseModelConfig parses model config data. Relative paths are resolved
// against baseDir.
func ParseModelConfig(data, baseDir string) (*ModelConfig, error) {
	cfg := &ModelConfig{baseDir: baseDir}
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "config: could not parse model config")
	}
	warnUndecoded(baseDir, md)
	return cfg, nil
}

// BaseDir returns the directory that relative paths are resolved against.
func (c *ModelConfig) BaseDir() string {
	return c.baseDir
}

// ModelFolders returns the configured model folders resolved against the
// config base directory.
func (c *ModelConfig) ModelFolders() []string {
	if c.Directories == nil {
		return nil
	}
	out := make([]string, len(c.Directories.ModelFolders))
	for i, dir := range c.Directories.ModelFolders {
		out[i] = c.ResolvePath(dir)
	}
	return out
}

// ResolvePath resolves a model path against the config base directory. URLs
// and absolute paths are returned as is.
func (c *ModelConfig) ResolvePath(path string) string {
	return resolvePath(c.baseDir, path)
}

func resolvePath(baseDir, path string) string {
	if strings.Contains(path, "://") || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func warnUndecoded(source string, md toml.MetaData) {
	for _, key := range md.Undecoded() {
		logger.Warningf("%s: ignoring unknown config key %q", source, key.String())
	}
}
