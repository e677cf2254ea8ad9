//go:build windows

package region

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetWindowPlacement       = user32.NewProc("GetWindowPlacement")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procFindWindow               = user32.NewProc("FindWindowW")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindow                = user32.NewProc("GetWindow")
)

const (
	SW_SHOWMINIMIZED = 2
	SW_SHOWMAXIMIZED = 3
	GW_OWNER         = 4
)

type windowPlacement struct {
	Length         uint32
	Flags          uint32
	ShowCmd        uint32
	MinPosition    struct{ X, Y int32 }
	MaxPosition    struct{ X, Y int32 }
	NormalPosition windows.Rect
}

type systemWindows struct{}

// SystemWindows returns a WindowSource backed by the window manager.
func SystemWindows() WindowSource {
	return systemWindows{}
}

func (systemWindows) Snapshot(id WindowID) (Snapshot, bool) {
	wp := windowPlacement{}
	wp.Length = uint32(unsafe.Sizeof(wp))
	if r, _, _ := procGetWindowPlacement.Call(uintptr(id), uintptr(unsafe.Pointer(&wp))); r == 0 {
		return Snapshot{}, false
	}

	var rc windows.Rect
	if r, _, _ := procGetWindowRect.Call(uintptr(id), uintptr(unsafe.Pointer(&rc))); r == 0 {
		return Snapshot{}, false
	}

	snap := Snapshot{Rect: Rect{Left: rc.Left, Top: rc.Top, Right: rc.Right, Bottom: rc.Bottom}}
	switch wp.ShowCmd {
	case SW_SHOWMINIMIZED:
		snap.State = Minimized
	case SW_SHOWMAXIMIZED:
		snap.State = Maximized
	}
	return snap, true
}

// FindWindow returns the top-level window with the given title.
func FindWindow(title string) (WindowID, error) {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, err
	}
	hwnd, _, _ := procFindWindow.Call(0, uintptr(unsafe.Pointer(p)))
	if hwnd == 0 {
		return 0, fmt.Errorf("%w: %q", ErrWindowNotFound, title)
	}
	return WindowID(hwnd), nil
}

// The enumeration callback is created once; enumMu serializes its use of
// enumPID and enumFound.
var (
	enumMu       sync.Mutex
	enumPID      uint32
	enumFound    uintptr
	enumCallback = windows.NewCallback(enumMainWindow)
)

// ProcessWindow returns the main window of a process: the first visible
// top-level window it owns that has no owner window itself.
func ProcessWindow(pid uint32) (WindowID, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumPID, enumFound = pid, 0
	procEnumWindows.Call(enumCallback, 0)
	if enumFound == 0 {
		return 0, fmt.Errorf("%w: process %d", ErrWindowNotFound, pid)
	}
	return WindowID(enumFound), nil
}

func enumMainWindow(hwnd uintptr, _ uintptr) uintptr {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid != enumPID {
		return 1
	}
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
		return 1
	}
	if owner, _, _ := procGetWindow.Call(hwnd, GW_OWNER); owner != 0 {
		return 1
	}
	enumFound = hwnd
	return 0
}
