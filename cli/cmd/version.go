package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"rpi-imager-diskwriter/types"
)

// VersionCommand reports the canonical module version and wire protocol
// version, shared lockstep by imgwriter-helper and imgwriter-session.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("version=%s protocol=%d\n", types.Version, types.ProtocolVersion)
			return nil
		},
	}
}
