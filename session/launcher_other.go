//go:build !windows

package session

import (
	"context"
	"errors"

	"rpi-imager-diskwriter/types"
)

// NewLauncher returns a Launcher that always fails: elevation and the
// named-pipe transport are Windows-only per spec §1 Non-goals. This stub
// exists so the session package (and anything that composes it) remains
// cross-compilable and unit-testable on any GOOS.
func NewLauncher() Launcher { return unsupportedLauncher{} }

type unsupportedLauncher struct{}

func (unsupportedLauncher) Launch(ctx context.Context, helperPath string, args []string) (Process, error) {
	return nil, newError(types.ErrKindHelperNotFound, "helper elevation is only supported on windows", errors.New("unsupported platform"))
}
