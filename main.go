package main

import (
	"fmt"
	"os"

	"github.com/latr-engine/latr/asset/compiler"
	"github.com/latr-engine/latr/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "latr"
	app.Usage = "compile triangle meshes into BVH scenes and run the simulation"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringSliceFlag{
			Name:  "debug-module",
			Usage: "enable debug logging for a single logger such as \"bvh builder\"; may be repeated",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile .tri models into a GPU-ready mesh archive",
			Description: `
Scan the model folders and explicit models listed in a model config file,
deduplicate vertices, build a 4-wide BVH for each mesh and package the
resulting buffers into a zip archive.

With --watch the archive is rebuilt whenever a .tri file in one of the model
folders changes.`,
			ArgsUsage: "models.toml",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "meshes.zip",
					Usage: "filename for the compiled archive",
				},
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "rebuild the archive when model files change",
				},
				cli.DurationFlag{
					Name:  "debounce",
					Value: compiler.DefaultWatchDebounce,
					Usage: "delay before rebuilding after a burst of changes",
				},
			},
			Action: cmd.CompileModels,
		},
		{
			Name:        "info",
			Usage:       "print compiled scene information",
			Description: `Display mesh and BVH statistics for a compiled archive or a single .tri model.`,
			ArgsUsage:   "meshes.zip",
			Action:      cmd.ShowSceneInfo,
		},
		{
			Name:  "simulate",
			Usage: "run the simulation with a headless render loop",
			Description: `
Load the engine config, compile the attached models and run the fixed tick
simulation alongside a render loop that picks up the newest simulation
snapshot every frame.`,
			ArgsUsage: "engine.toml",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "headless",
					Usage: "force the headless run mode",
				},
				cli.StringFlag{
					Name:  "models, m",
					Usage: "model config file; overrides model_file from the engine config",
				},
				cli.DurationFlag{
					Name:  "duration, d",
					Value: 0,
					Usage: "stop after this long; 0 runs until interrupted",
				},
				cli.Uint64Flag{
					Name:  "frames",
					Value: 0,
					Usage: "stop after rendering this many frames",
				},
				cli.Float64Flag{
					Name:  "orbit-speed",
					Value: 0.5,
					Usage: "camera orbit speed in radians per second",
				},
			},
			Action: cmd.Simulate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
