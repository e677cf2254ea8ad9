//go:build windows

package hook

import (
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"activitymon/internal/input"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetKeyState         = user32.NewProc("GetKeyState")
	procGetKeyboardState    = user32.NewProc("GetKeyboardState")
	procToAscii             = user32.NewProc("ToAscii")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	HC_ACTION      = 0
	WM_QUIT        = 0x0012
	VK_SHIFT       = 0x10
	VK_CAPITAL     = 0x14
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Callbacks are created once; the runtime never frees them, so installing a
// fresh callback per hook would leak one slot per install cycle.
var (
	keyboardCallback = windows.NewCallback(keyboardHookProc)
	mouseCallback    = windows.NewCallback(mouseHookProc)

	// routes holds the currently installed hook per kind.
	routes [hookKinds]atomic.Pointer[systemHook]
)

type systemBackend struct{}

// SystemBackend returns the Windows low-level hook backend. Only one hook of
// each kind can be installed through it at a time, process-wide.
func SystemBackend() Backend {
	return systemBackend{}
}

// systemHook is an installed WH_*_LL hook. Its Proc stays routed until
// Unhook runs.
type systemHook struct {
	kind     input.HookKind
	proc     Proc
	handle   uintptr
	threadID uint32
	ready    chan error
	once     sync.Once
}

func (systemBackend) Install(kind input.HookKind, proc Proc) (Hook, error) {
	h := &systemHook{kind: kind, proc: proc, ready: make(chan error, 1)}
	if !routes[kind].CompareAndSwap(nil, h) {
		return nil, ErrHookBusy
	}
	go h.run()
	if err := <-h.ready; err != nil {
		routes[kind].CompareAndSwap(h, nil)
		return nil, err
	}
	return h, nil
}

// run installs the hook and pumps messages on a locked OS thread. Low-level
// hook callbacks are delivered through the installing thread's message loop.
func (h *systemHook) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.threadID = windows.GetCurrentThreadId()

	idHook, callback := uintptr(WH_KEYBOARD_LL), keyboardCallback
	if h.kind == input.Mouse {
		idHook, callback = WH_MOUSE_LL, mouseCallback
	}

	hMod, _, _ := procGetModuleHandle.Call(0)
	handle, _, err := procSetWindowsHookEx.Call(idHook, callback, hMod, 0)
	if handle == 0 {
		h.ready <- lastError(err)
		return
	}
	h.handle = handle
	h.ready <- nil

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// Unhook removes the hook and stops its message pump. It does not wait for
// the pump to exit, so it is safe to call from inside a listener.
func (h *systemHook) Unhook() error {
	var err error
	h.once.Do(func() {
		routes[h.kind].CompareAndSwap(h, nil)
		r, _, e := procUnhookWindowsHookEx.Call(h.handle)
		if r == 0 {
			err = lastError(e)
		}
		procPostThreadMessage.Call(uintptr(h.threadID), WM_QUIT, 0, 0)
	})
	return err
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := routes[input.Keyboard].Load()
	if nCode == HC_ACTION && h != nil {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		raw := RawMessage{
			Kind: input.Keyboard,
			Keyboard: input.KeyboardMessage{
				Message:  uint32(wParam),
				VKCode:   kbd.VkCode,
				ScanCode: kbd.ScanCode,
				Flags:    kbd.Flags,
				Time:     kbd.Time,
			},
		}
		if h.proc(raw) == Suppress {
			return 1
		}
	}
	return callNext(h, nCode, wParam, lParam)
}

func mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := routes[input.Mouse].Load()
	if nCode == HC_ACTION && h != nil {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		raw := RawMessage{
			Kind: input.Mouse,
			Mouse: input.MouseMessage{
				Message:   uint32(wParam),
				X:         ms.Point.X,
				Y:         ms.Point.Y,
				MouseData: ms.MouseData,
				Flags:     ms.Flags,
				Time:      ms.Time,
			},
		}
		if h.proc(raw) == Suppress {
			return 1
		}
	}
	return callNext(h, nCode, wParam, lParam)
}

func callNext(h *systemHook, nCode int, wParam, lParam uintptr) uintptr {
	var handle uintptr
	if h != nil {
		handle = h.handle
	}
	ret, _, _ := procCallNextHookEx.Call(handle, uintptr(nCode), wParam, lParam)
	return ret
}

// lastError normalizes the error returned by LazyProc.Call, which is always
// non-nil and may be ERROR_SUCCESS.
func lastError(err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	return syscall.EINVAL
}

type systemKeyboard struct{}

// SystemKeyboard returns the keyboard state of the calling thread's input
// queue, used to translate key downs into characters.
func SystemKeyboard() input.KeyboardState {
	return systemKeyboard{}
}

func (systemKeyboard) ShiftDown() bool {
	r, _, _ := procGetKeyState.Call(VK_SHIFT)
	return uint16(r)&0x80 != 0
}

func (systemKeyboard) CapsLockOn() bool {
	r, _, _ := procGetKeyState.Call(VK_CAPITAL)
	return uint16(r)&0x01 != 0
}

func (systemKeyboard) ToChar(vk, scan, flags uint32) (rune, bool) {
	var state [256]byte
	if r, _, _ := procGetKeyboardState.Call(uintptr(unsafe.Pointer(&state[0]))); r == 0 {
		return 0, false
	}
	var buf [2]uint16
	n, _, _ := procToAscii.Call(
		uintptr(vk),
		uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(flags),
	)
	if int32(n) != 1 {
		return 0, false
	}
	return rune(buf[0] & 0xFF), true
}
