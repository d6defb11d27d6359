package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/latr-engine/latr/asset/compiler"
	"github.com/latr-engine/latr/asset/scene/reader"
	"github.com/latr-engine/latr/asset/scene/writer"
	"github.com/latr-engine/latr/config"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/multierr"
)

// Compile the models listed by a model config file into a mesh archive.
func CompileModels(ctx *cli.Context) error {
	if err := setupLogging(ctx, ""); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing model config file argument")
	}

	cfg, err := config.LoadModelConfig(ctx.Args().First())
	if err != nil {
		return err
	}

	outFile := ctx.String("out")
	if !strings.HasSuffix(outFile, ".zip") {
		return errors.New("the compiled archive must have a .zip extension")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild := func(rctx context.Context) error {
		return compileArchive(rctx, cfg, outFile)
	}
	if err = rebuild(runCtx); err != nil {
		return err
	}

	if !ctx.Bool("watch") {
		return nil
	}

	watcher, err := compiler.NewWatcher(cfg, ctx.Duration("debounce"))
	if err != nil {
		return err
	}
	logger.Notice("watching model folders for changes; press ctrl+c to exit")
	return watcher.Run(runCtx, rebuild)
}

// Build all models and write them to a temporary archive which replaces
// outFile once it is complete.
func compileArchive(ctx context.Context, cfg *config.ModelConfig, outFile string) (err error) {
	tmpFile := filepath.Join(filepath.Dir(outFile), "."+filepath.Base(outFile)+".tmp")
	w, err := writer.NewZipWriter(tmpFile)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpFile)
		}
	}()

	report, err := compiler.BuildModels(ctx, cfg, w)
	if closeErr := w.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}
	if err != nil {
		return err
	}

	for _, skipErr := range multierr.Errors(report.Skipped) {
		logger.Warningf("skipped: %v", skipErr)
	}
	if err = os.Rename(tmpFile, outFile); err != nil {
		return errors.Wrapf(err, "could not move archive to %s", outFile)
	}
	logger.Noticef("wrote %d meshes to %s", report.Meshes, outFile)
	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx, ""); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	ext := strings.ToLower(filepath.Ext(sceneFile))
	if ext != ".zip" && ext != ".tri" {
		return errors.New("only compiled scene files with a .zip extension or .tri models are supported")
	}

	start := time.Now()
	sc, err := reader.ReadScene(context.Background(), sceneFile)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information (loaded in %d ms):\n%s", time.Since(start).Nanoseconds()/1e6, sc.Stats())

	return nil
}
