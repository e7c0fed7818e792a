// Package main provides the imgwriter-session entrypoint: the
// unprivileged CLI a user runs directly, which elevates and drives
// imgwriter-helper through exactly one command.
//
// Usage:
//
//	imgwriter-session write --drive \\.\PhysicalDrive2 --source rpi.img
//	imgwriter-session format --drive \\.\PhysicalDrive2
//	imgwriter-session customize --drive \\.\E: --hostname pi --ssh-key "ssh-ed25519 ..."
//	imgwriter-session verify --drive \\.\PhysicalDrive2 --source rpi.img --expected-hash <hex>
package main

import (
	"os"

	"rpi-imager-diskwriter/cli/cmd"
)

func main() {
	app := cmd.SessionApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(cmd.ExitFailed)
	}
}
