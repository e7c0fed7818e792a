package writeengine

import (
	"context"
	"fmt"

	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/types"
)

// Format implements helper.Dispatcher's Format method: args are
// [drivePath]. It runs the disk-preparation half of the WRITE pipeline
// (offline + clean the partition table) on its own, for a client that
// wants the drive readied before committing to a WRITE, or that only
// ever wipes a drive without imaging it. A volume-path target
// (`\\.\A:`) has no disk number to offline this way; the drive is
// prepared instead as a side effect of WRITE opening it exclusively.
func (e *Engine) Format(ctx context.Context, args []string, report helper.ProgressReporter) error {
	if len(args) != 1 {
		return fmt.Errorf("format: expected 1 argument, got %d", len(args))
	}
	drivePath := args[0]

	driveNumber, isPhysical := parseDriveNumber(drivePath)
	if !isPhysical {
		report(types.ProgressWrite, 1, 1)
		return nil
	}

	if err := e.Diskpart.PrepareDisk(ctx, driveNumber); err != nil {
		return fmt.Errorf("prepare disk %d: %w", driveNumber, err)
	}
	report(types.ProgressWrite, 1, 1)
	return nil
}
