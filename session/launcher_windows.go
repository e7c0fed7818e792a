//go:build windows

package session

import (
	"context"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"rpi-imager-diskwriter/types"
)

// errorCancelled is ERROR_CANCELLED, returned by ShellExecuteEx when the
// user dismisses the UAC elevation prompt.
const errorCancelled = windows.Errno(1223)

// shellExecuteInfo mirrors SHELLEXECUTEINFOW, used to request elevation
// (lpVerb = "runas") the same way the original helper's ShellExecuteEx
// call did, and to capture the resulting process handle
// (SEE_MASK_NOCLOSEPROCESS) so the bridge can monitor and terminate it.
type shellExecuteInfo struct {
	cbSize       uint32
	fMask        uint32
	hwnd         uintptr
	lpVerb       *uint16
	lpFile       *uint16
	lpParameters *uint16
	lpDirectory  *uint16
	nShow        int32
	hInstApp     uintptr
	lpIDList     uintptr
	lpClass      *uint16
	hkeyClass    uintptr
	dwHotKey     uint32
	hIconOrMon   uintptr
	hProcess     windows.Handle
}

const (
	seeMaskNoCloseProcess = 0x00000040
	swHide                = 0
)

var (
	shell32               = windows.NewLazySystemDLL("shell32.dll")
	procShellExecuteExW   = shell32.NewProc("ShellExecuteExW")
)

// windowsLauncher requests OS-level elevation via ShellExecuteEx("runas"),
// per spec §4.2. ERROR_CANCELLED distinguishes a denied UAC prompt from
// any other launch failure.
type windowsLauncher struct{}

// NewLauncher returns the platform elevation bridge.
func NewLauncher() Launcher { return windowsLauncher{} }

func (windowsLauncher) Launch(ctx context.Context, helperPath string, args []string) (Process, error) {
	if _, err := windows.GetFileAttributes(windows.StringToUTF16Ptr(helperPath)); err != nil {
		return nil, newError(types.ErrKindHelperNotFound, "helper executable not found: "+helperPath, err)
	}

	verb, _ := windows.UTF16PtrFromString("runas")
	file, _ := windows.UTF16PtrFromString(helperPath)
	params, _ := windows.UTF16PtrFromString(joinArgs(args))

	info := shellExecuteInfo{
		lpVerb:       verb,
		lpFile:       file,
		lpParameters: params,
		nShow:        swHide,
		fMask:        seeMaskNoCloseProcess,
	}
	info.cbSize = uint32(unsafe.Sizeof(info))

	ret, _, _ := procShellExecuteExW.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		errno := windows.GetLastError()
		if errno == errorCancelled {
			return nil, newError(types.ErrKindElevationCancelled, "user denied the elevation prompt", errno)
		}
		if errno == windows.ERROR_ACCESS_DENIED {
			return nil, newError(types.ErrKindAccessDenied, "access denied launching helper", errno)
		}
		return nil, newError(types.ErrKindHelperNotFound, "failed to launch helper", errno)
	}

	return &windowsProcess{handle: info.hProcess}, nil
}

func joinArgs(args []string) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += `"` + a + `"`
	}
	return s
}

type windowsProcess struct{ handle windows.Handle }

func (p *windowsProcess) Pid() int {
	pid, _ := windows.GetProcessId(p.handle)
	return int(pid)
}

func (p *windowsProcess) Alive() bool {
	var code uint32
	if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
		return false
	}
	return code == uint32(259) // STILL_ACTIVE
}

func (p *windowsProcess) Wait(ctx context.Context) (int, error) {
	for {
		if !p.Alive() {
			var code uint32
			windows.GetExitCodeProcess(p.handle, &code)
			return int(code), nil
		}
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (p *windowsProcess) Terminate() error {
	if p.handle == 0 {
		return nil
	}
	return windows.TerminateProcess(p.handle, 1)
}
