package cmd

import (
	"github.com/latr-engine/latr/log"
	"github.com/urfave/cli"
)

var logger = log.New("latr")

// Apply the config file log level first so the verbosity flags can still
// override it. Modules named by --debug-module always log at debug level.
func setupLogging(ctx *cli.Context, configLevel string) error {
	if configLevel != "" {
		level, err := log.ParseLevel(configLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	for _, module := range ctx.GlobalStringSlice("debug-module") {
		log.SetModuleLevel(module, log.Debug)
	}
	return nil
}
