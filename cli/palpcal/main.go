// Package main is the palpcal command itself.
package main

import (
	"os"

	"github.com/dvrk-tools/palpcal/cli"
	"github.com/dvrk-tools/palpcal/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewWriterLogger("palpcal", os.Stderr, logging.ERROR).Error(err)
		os.Exit(1)
	}
}
