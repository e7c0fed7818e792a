// Package helper implements the elevated, server side of the IPC
// session: accepting one client connection, performing the handshake,
// and dispatching commands to the disk-write, customization, and
// verification engines.
package helper

import (
	"context"

	"rpi-imager-diskwriter/types"
)

// ProgressReporter emits a progress frame for the in-flight command.
// Implementations should not be called after the command returns.
type ProgressReporter func(kind types.ProgressKind, now, total int64)

// Dispatcher executes one command's engine logic. Each method receives
// the command's already-arity-checked arguments (see ipc.Parse) and
// must return promptly on ctx cancellation.
//
// Dispatcher methods report failures by returning an error; the server
// converts any error into a FAILURE completion frame and logs it, never
// propagating it back to the client as anything other than that token
// (spec §4.6: an unknown verb, and any command failure, yields FAILURE
// without leaving Ready).
type Dispatcher interface {
	// Format takes the target drive offline and cleans its partition
	// table; it creates no partitions and formats no filesystem. args[0]
	// is the drive specifier.
	Format(ctx context.Context, args []string, report ProgressReporter) error
	// Write streams the source image to the target device. args are
	// [sourcePath, devicePath].
	Write(ctx context.Context, args []string, report ProgressReporter) error
	// Customize applies FAT boot customization. args are
	// [drive, base64Config, base64Cmdline, base64Firstrun, base64Cloudinit,
	// base64Network, initFormat].
	Customize(ctx context.Context, args []string, report ProgressReporter) error
	// Verify re-reads the written device and compares its hash against
	// the source. args are [sourcePath, devicePath, expectedHashHex].
	Verify(ctx context.Context, args []string, report ProgressReporter) error
}
