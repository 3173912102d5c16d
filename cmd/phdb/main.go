package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/phdb/image-bundler/cmd/phdb/commands"
	"github.com/phdb/image-bundler/internal/di"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "phdb",
		Usage: "Product image bundling toolkit",
		Description: `A CLI tool for assembling product image bundles and inspecting bundle jobs.

This tool provides commands for:
  - Bundling a single item's images with an optional size chart
  - Bundling many items from a YAML manifest
  - Inspecting bundle job records`,
		Commands: []*cli.Command{
			commands.BundleCommand(&logger),
			commands.BatchCommand(&logger),
			commands.JobsCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
