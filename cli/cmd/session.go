package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"rpi-imager-diskwriter/cli/tui"
	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/session"
	"rpi-imager-diskwriter/types"
)

// SessionApp builds the imgwriter-session CLI: an unprivileged client
// that elevates and drives the helper through one command, the
// multi-subcommand shape the dashboard CLI used for its read-only
// verbs, generalized here to the write/format/customize/verify verbs
// this domain actually has.
func SessionApp() *cli.App {
	return &cli.App{
		Name:  "imgwriter-session",
		Usage: "Elevate imgwriter-helper and drive one disk-write command",
		Commands: []*cli.Command{
			formatCommand(),
			writeCommand(),
			customizeCommand(),
			verifyCommand(),
			shutdownCommand(),
			VersionCommand(),
		},
		ExitErrHandler: exitErrHandler,
	}
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:  "format",
		Usage: "Take the target drive offline and clean its partition table",
		Flags: []cli.Flag{DriveFlag, HelperPathFlag, SocketFlag, TUIFlag},
		Action: func(c *cli.Context) error {
			return runSessionCommand(c, types.VerbFormat, []string{c.String("drive")})
		},
	}
}

func writeCommand() *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "Stream a source image to the target drive",
		Flags: []cli.Flag{DriveFlag, SourceFlag, HelperPathFlag, SocketFlag, TUIFlag},
		Action: func(c *cli.Context) error {
			if c.String("source") == "" {
				return cli.Exit("--source is required", ExitArgValidation)
			}
			return runSessionCommand(c, types.VerbWrite, []string{c.String("source"), c.String("drive")})
		},
	}
}

func customizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "customize",
		Usage: "Apply FAT boot customization (hostname, SSH key, Wi-Fi) to the target drive",
		Flags: []cli.Flag{DriveFlag, HostnameFlag, SSHKeyFlag, WifiSSIDFlag, WifiPasswordFlag, InitFormatFlag, HelperPathFlag, SocketFlag, TUIFlag},
		Action: func(c *cli.Context) error {
			args := append([]string{c.String("drive")}, buildCustomizeArgs(
				c.String("hostname"), c.String("ssh-key"), c.String("wifi-ssid"), c.String("wifi-password"),
				types.InitFormat(c.String("init-format")),
			)...)
			return runSessionCommand(c, types.VerbCustomize, args)
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Re-read the target drive and compare its hash against the source",
		Flags: []cli.Flag{DriveFlag, SourceFlag, ExpectedHashFlag, HelperPathFlag, SocketFlag, TUIFlag},
		Action: func(c *cli.Context) error {
			return runSessionCommand(c, types.VerbVerify, []string{c.String("source"), c.String("drive"), c.String("expected-hash")})
		},
	}
}

func shutdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "shutdown",
		Usage: "Launch the helper, complete the handshake, and send SHUTDOWN (does not attach to an already-running helper)",
		Flags: []cli.Flag{HelperPathFlag, SocketFlag},
		Action: func(c *cli.Context) error {
			mgr := session.NewManager(session.NewLauncher())
			ctx := context.Background()
			if err := mgr.Connect(ctx, c.String("helper")); err != nil {
				return cli.Exit(err.Error(), ExitFailed)
			}
			return mgr.Close(ctx)
		},
	}
}

// runSessionCommand connects to the helper, runs verb, and renders
// progress either as plain stderr lines or, with --tui, as a Bubble Tea
// progress bar. It always closes the session before returning, even on
// error.
func runSessionCommand(c *cli.Context, verb types.Verb, args []string) error {
	mgr := session.NewManager(session.NewLauncher())
	ctx := context.Background()

	if err := mgr.Connect(ctx, c.String("helper")); err != nil {
		return cli.Exit(err.Error(), ExitFailed)
	}
	defer mgr.Close(ctx)

	if c.Bool("tui") {
		return runWithTUI(ctx, mgr, verb, args)
	}
	return runPlain(ctx, mgr, verb, args)
}

func runPlain(ctx context.Context, mgr *session.Manager, verb types.Verb, args []string) error {
	completion, err := mgr.RunCommand(ctx, verb, args, func(f ipc.ProgressFrame) {
		fmt.Fprintf(os.Stderr, "\r%s: %s %d/%d", verb, f.Kind, f.Now, f.Total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return cli.Exit(err.Error(), ExitFailed)
	}
	if completion != types.CompletionSuccess {
		return cli.Exit(fmt.Sprintf("%s failed", verb), ExitFailed)
	}
	return nil
}

func runWithTUI(ctx context.Context, mgr *session.Manager, verb types.Verb, args []string) error {
	frames := make(chan tui.ProgressMsg)
	model := tui.NewProgressModel(string(verb), frames)
	program := tea.NewProgram(model)

	done := make(chan struct{})
	var completion string
	var runErr error
	go func() {
		defer close(done)
		completion, runErr = mgr.RunCommand(ctx, verb, args, func(f ipc.ProgressFrame) {
			frames <- tui.ProgressMsg{Kind: f.Kind.String(), Now: f.Now, Total: f.Total}
		})
		frames <- tui.ProgressMsg{Done: true, Err: runErr}
	}()

	if _, err := program.Run(); err != nil {
		return cli.Exit(err.Error(), ExitFailed)
	}
	// After a detach the model no longer reads frames; drain them so the
	// command goroutine can finish.
	go func() {
		for {
			select {
			case <-frames:
			case <-done:
				return
			}
		}
	}()
	<-done

	if runErr != nil {
		return cli.Exit(runErr.Error(), ExitFailed)
	}
	if completion != types.CompletionSuccess {
		return cli.Exit(fmt.Sprintf("%s failed", verb), ExitFailed)
	}
	return nil
}
