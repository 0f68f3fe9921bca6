// Command path_server loads a recorded path and republishes it.
package main

import (
	"os"

	"github.com/OCAP2/pathrecorder/internal/app"
	"github.com/OCAP2/pathrecorder/internal/cli"
)

func main() {
	os.Exit(app.Main(cli.ModeServe, os.Args[1:], os.Stderr))
}
