// Package cmd provides CLI command definitions for the imgwriter-helper
// and imgwriter-session binaries.
package cmd

import "github.com/urfave/cli/v2"

// Flags for the helper daemon/one-shot CLI.
var (
	DaemonFlag = &cli.BoolFlag{
		Name:  "daemon",
		Usage: "Start long-lived, serving commands over the socket",
	}
	HelperFormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "One-shot format of <drive>",
	}
	HelperWriteFlag = &cli.StringFlag{
		Name:    "write",
		Aliases: []string{"w"},
		Usage:   "One-shot write to <drive>; requires --source",
	}
	SourceFlag = &cli.StringFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Image path for --write",
	}
	SocketFlag = &cli.StringFlag{
		Name:  "socket",
		Usage: "Local-socket name override",
		Value: "rpihelperlocalsocket",
	}
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to an imgwriter-helper.yaml config file",
	}
	NoDiagnosticsFlag = &cli.BoolFlag{
		Name:  "no-diagnostics",
		Usage: "Disable the local diagnostics audit log",
	}
	NotifyRedisFlag = &cli.StringFlag{
		Name:  "notify-redis",
		Usage: "Redis URL to publish session-completed events to",
	}
	ManifestBucketFlag = &cli.StringFlag{
		Name:  "manifest-bucket",
		Usage: "S3 bucket to upload a fleet manifest to after a successful WRITE+VERIFY",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Minimum log level: debug, info, warn, error",
		Value: "info",
	}
)

// Flags shared by imgwriter-session subcommands.
var (
	DriveFlag = &cli.StringFlag{
		Name:     "drive",
		Usage:    `Target drive path (e.g. \\.\PhysicalDrive2 or \\.\E:)`,
		Required: true,
	}
	HelperPathFlag = &cli.StringFlag{
		Name:  "helper",
		Usage: "Path to the imgwriter-helper executable",
		Value: "imgwriter-helper.exe",
	}
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Render progress as an interactive TUI",
	}
	HostnameFlag = &cli.StringFlag{
		Name:  "hostname",
		Usage: "Hostname to set via config.txt",
	}
	SSHKeyFlag = &cli.StringFlag{
		Name:  "ssh-key",
		Usage: "Authorized SSH public key contents",
	}
	WifiSSIDFlag = &cli.StringFlag{
		Name:  "wifi-ssid",
		Usage: "Wi-Fi network name",
	}
	WifiPasswordFlag = &cli.StringFlag{
		Name:  "wifi-password",
		Usage: "Wi-Fi network password",
	}
	InitFormatFlag = &cli.StringFlag{
		Name:  "init-format",
		Usage: "Boot init format: auto, cloudinit, systemd",
		Value: "auto",
	}
	ExpectedHashFlag = &cli.StringFlag{
		Name:     "expected-hash",
		Usage:    "Expected SHA-256 hash of the source image, hex-encoded",
		Required: true,
	}
)
