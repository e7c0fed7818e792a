// Package main provides the imgwriter-helper entrypoint: the elevated
// process launched by imgwriter-session over the local-socket transport.
//
// Usage:
//
//	imgwriter-helper --daemon --socket <name>
//	imgwriter-helper --format <drive>
//	imgwriter-helper --write <drive> --source <path>
//
// Exit codes:
//   - 0: success
//   - 1: command or session failure
//   - 2: argument validation failure
//   - 3: no operation requested
package main

import (
	"os"

	"rpi-imager-diskwriter/cli/cmd"
)

func main() {
	app := cmd.HelperApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(cmd.ExitFailed)
	}
}
