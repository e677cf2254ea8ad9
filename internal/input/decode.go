package input

import "unicode"

// Window messages carried in the wParam of low-level hooks.
const (
	WM_KEYDOWN       = 0x0100
	WM_KEYUP         = 0x0101
	WM_SYSKEYDOWN    = 0x0104
	WM_SYSKEYUP      = 0x0105
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_LBUTTONDBLCLK = 0x0203
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205
	WM_RBUTTONDBLCLK = 0x0206
	WM_MBUTTONDOWN   = 0x0207
	WM_MBUTTONUP     = 0x0208
	WM_MBUTTONDBLCLK = 0x0209
	WM_MOUSEWHEEL    = 0x020A
	WM_XBUTTONDOWN   = 0x020B
	WM_XBUTTONUP     = 0x020C
	WM_XBUTTONDBLCLK = 0x020D
	WM_MOUSEHWHEEL   = 0x020E
)

// KBDLLHOOKSTRUCT flags.
const (
	LLKHF_EXTENDED = 0x01
	LLKHF_INJECTED = 0x10
)

// WheelDelta is the distance of one wheel notch.
const WheelDelta = 120

// KeyboardDecoded holds the events derived from one keyboard message. Nil
// fields were not produced.
type KeyboardDecoded struct {
	Down  *KeyEvent
	Press *KeyPressEvent
	Up    *KeyEvent
}

// Empty reports whether the message mapped to no event.
func (d KeyboardDecoded) Empty() bool {
	return d.Down == nil && d.Press == nil && d.Up == nil
}

// DecodeKeyboard translates a low-level keyboard message. ks may be nil, in
// which case no KeyPress is produced. Modifiers are left for the caller to
// stamp since they depend on the pressed-key set.
func DecodeKeyboard(msg KeyboardMessage, ks KeyboardState) KeyboardDecoded {
	var d KeyboardDecoded
	key := Key(msg.VKCode)

	switch msg.Message {
	case WM_KEYDOWN, WM_SYSKEYDOWN:
		d.Down = newKeyEvent(msg)
	case WM_KEYUP, WM_SYSKEYUP:
		d.Up = newKeyEvent(msg)
	}

	if msg.Message == WM_KEYDOWN && ks != nil {
		if ch, ok := ks.ToChar(msg.VKCode, msg.ScanCode, msg.Flags); ok {
			if (ks.ShiftDown() != ks.CapsLockOn()) && unicode.IsLetter(ch) {
				ch = unicode.ToUpper(ch)
			}
			d.Press = &KeyPressEvent{Char: ch, Key: key, Time: msg.Time}
		}
	}
	return d
}

func newKeyEvent(msg KeyboardMessage) *KeyEvent {
	return &KeyEvent{
		Key:      Key(msg.VKCode),
		ScanCode: msg.ScanCode,
		Extended: msg.Flags&LLKHF_EXTENDED != 0,
		Injected: msg.Flags&LLKHF_INJECTED != 0,
		Time:     msg.Time,
	}
}

// MouseDecoded holds the classification of one mouse message.
type MouseDecoded struct {
	Event       *MouseEvent
	Down        bool
	Up          bool
	DoubleClick bool
	Moved       bool
}

// Clicked reports whether the message counts as a click.
func (d MouseDecoded) Clicked() bool {
	return d.Event.Clicks > 0
}

// Wheel reports whether the wheel moved.
func (d MouseDecoded) Wheel() bool {
	return d.Event.Delta != 0
}

// Kinds lists the event kinds implicated by the message in dispatch order.
func (d MouseDecoded) Kinds() []EventKind {
	kinds := make([]EventKind, 0, 4)
	if d.Up {
		kinds = append(kinds, MouseUp)
	}
	if d.Down {
		kinds = append(kinds, MouseDown)
	}
	if d.Clicked() {
		kinds = append(kinds, MouseClick, MouseClickExt)
	}
	if d.DoubleClick {
		kinds = append(kinds, MouseDoubleClick)
	}
	if d.Wheel() {
		kinds = append(kinds, MouseWheel)
	}
	if d.Moved {
		kinds = append(kinds, MouseMove, MouseMoveExt)
	}
	return kinds
}

// LastPosition is the mouse position cache. The zero value is unset.
type LastPosition struct {
	Point
	Valid bool
}

// DecodeMouse translates a low-level mouse message. last is the previously
// observed cursor position; the caller owns updating it.
func DecodeMouse(msg MouseMessage, last LastPosition) MouseDecoded {
	ev := &MouseEvent{X: msg.X, Y: msg.Y, Time: msg.Time}
	d := MouseDecoded{Event: ev}

	switch msg.Message {
	case WM_LBUTTONDOWN, WM_RBUTTONDOWN, WM_MBUTTONDOWN, WM_XBUTTONDOWN:
		d.Down = true
		ev.Clicks = 1
	case WM_LBUTTONUP, WM_RBUTTONUP, WM_MBUTTONUP, WM_XBUTTONUP:
		d.Up = true
		ev.Clicks = 1
	case WM_LBUTTONDBLCLK, WM_RBUTTONDBLCLK, WM_MBUTTONDBLCLK, WM_XBUTTONDBLCLK:
		d.DoubleClick = true
		ev.Clicks = 2
	case WM_MOUSEWHEEL:
		ev.Delta = HighWord(msg.MouseData)
	case WM_MOUSEHWHEEL:
		ev.Delta = HighWord(msg.MouseData)
		ev.Horizontal = true
	}

	switch msg.Message {
	case WM_LBUTTONDOWN, WM_LBUTTONUP, WM_LBUTTONDBLCLK:
		ev.Button = ButtonLeft
	case WM_RBUTTONDOWN, WM_RBUTTONUP, WM_RBUTTONDBLCLK:
		ev.Button = ButtonRight
	case WM_MBUTTONDOWN, WM_MBUTTONUP, WM_MBUTTONDBLCLK:
		ev.Button = ButtonMiddle
	case WM_XBUTTONDOWN, WM_XBUTTONUP, WM_XBUTTONDBLCLK:
		switch uint16(msg.MouseData >> 16) {
		case 1:
			ev.Button = ButtonX1
		case 2:
			ev.Button = ButtonX2
		}
	}

	d.Moved = !last.Valid || last.X != msg.X || last.Y != msg.Y
	return d
}

// HighWord returns the signed high-order word of v.
func HighWord(v uint32) int16 {
	return int16(uint16(v >> 16))
}
