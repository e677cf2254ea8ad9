//go:build windows

package osutils

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	INPUT_MOUSE      = 0
	MOUSEEVENTF_MOVE = 0x0001
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type INPUT struct {
	Type uint32
	Mi   MOUSEINPUT
	_    [8]byte // Padding to match C structure alignment
}

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// IsElevated reports whether the process runs with an elevated token. Input
// destined for elevated windows is invisible to hooks of a process that is
// not elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// NudgeMouse injects a one pixel mouse movement and moves back, producing
// two injected MouseMove messages.
func NudgeMouse() error {
	var input INPUT
	input.Type = INPUT_MOUSE
	input.Mi.DwFlags = MOUSEEVENTF_MOVE

	for _, d := range []int32{1, -1} {
		input.Mi.Dx, input.Mi.Dy = d, d
		n, _, err := procSendInput.Call(
			1,
			uintptr(unsafe.Pointer(&input)),
			unsafe.Sizeof(input),
		)
		if n == 0 {
			return err
		}
	}
	return nil
}
