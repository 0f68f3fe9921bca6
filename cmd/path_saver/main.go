// Command path_saver records incoming points into a path and writes it to a
// JSON file on shutdown.
package main

import (
	"os"

	"github.com/OCAP2/pathrecorder/internal/app"
	"github.com/OCAP2/pathrecorder/internal/cli"
)

func main() {
	os.Exit(app.Main(cli.ModeSave, os.Args[1:], os.Stderr))
}
