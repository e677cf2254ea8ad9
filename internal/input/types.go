// Package input decodes low-level keyboard and mouse hook payloads into
// semantic input events.
package input

import (
	"fmt"
	"strings"
)

// HookKind identifies which system hook an event kind needs.
type HookKind int

const (
	Keyboard HookKind = iota
	Mouse
)

func (k HookKind) String() string {
	switch k {
	case Keyboard:
		return "keyboard"
	case Mouse:
		return "mouse"
	}
	return fmt.Sprintf("HookKind(%d)", int(k))
}

// EventKind is a semantic event listeners can subscribe to.
type EventKind int

const (
	KeyDown EventKind = iota
	KeyUp
	KeyPress
	MouseMove
	MouseMoveExt
	MouseClick
	MouseClickExt
	MouseDoubleClick
	MouseDown
	MouseUp
	MouseWheel

	numEventKinds
)

// EventKindCount is the number of defined event kinds.
const EventKindCount = int(numEventKinds)

var eventKindNames = [...]string{
	KeyDown:          "KeyDown",
	KeyUp:            "KeyUp",
	KeyPress:         "KeyPress",
	MouseMove:        "MouseMove",
	MouseMoveExt:     "MouseMoveExt",
	MouseClick:       "MouseClick",
	MouseClickExt:    "MouseClickExt",
	MouseDoubleClick: "MouseDoubleClick",
	MouseDown:        "MouseDown",
	MouseUp:          "MouseUp",
	MouseWheel:       "MouseWheel",
}

func (k EventKind) String() string {
	if k.Valid() {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Valid reports whether k is a defined event kind.
func (k EventKind) Valid() bool {
	return k >= 0 && k < numEventKinds
}

// Hook returns the hook that must be installed to observe k.
func (k EventKind) Hook() HookKind {
	switch k {
	case KeyDown, KeyUp, KeyPress:
		return Keyboard
	}
	return Mouse
}

// ParseEventKind resolves an event kind by name, ignoring case.
func ParseEventKind(name string) (EventKind, error) {
	for i, n := range eventKindNames {
		if strings.EqualFold(n, name) {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is the common surface of every semantic event. Setting the handled
// flag asks the hook manager to keep the raw input from reaching the rest of
// the system.
type Event interface {
	Handled() bool
	SetHandled(bool)
}

type handledFlag struct {
	handled bool
}

// Handled reports whether a listener marked the event as handled.
func (h *handledFlag) Handled() bool { return h.handled }

// SetHandled marks the event as handled (or not).
func (h *handledFlag) SetHandled(v bool) { h.handled = v }

// KeyEvent is delivered for KeyDown and KeyUp.
type KeyEvent struct {
	handledFlag
	Key       Key
	Modifiers Modifiers
	ScanCode  uint32
	Extended  bool
	Injected  bool
	Time      uint32
}

// KeyPressEvent is delivered for KeyPress once a key down translates to a
// character.
type KeyPressEvent struct {
	handledFlag
	Char rune
	Key  Key
	Time uint32
}

// MouseButton identifies a mouse button.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
	ButtonX1
	ButtonX2
)

func (b MouseButton) String() string {
	switch b {
	case ButtonNone:
		return "None"
	case ButtonLeft:
		return "Left"
	case ButtonRight:
		return "Right"
	case ButtonMiddle:
		return "Middle"
	case ButtonX1:
		return "XButton1"
	case ButtonX2:
		return "XButton2"
	}
	return fmt.Sprintf("MouseButton(%d)", int(b))
}

// MouseEvent is delivered for every mouse event kind. One value is shared by
// all kinds derived from the same raw message.
type MouseEvent struct {
	handledFlag
	Button     MouseButton
	Clicks     int
	X, Y       int32
	Delta      int16
	Horizontal bool
	Time       uint32
}

// Point is a screen coordinate.
type Point struct {
	X, Y int32
}

// Position returns the cursor position carried by the event.
func (e *MouseEvent) Position() Point {
	return Point{X: e.X, Y: e.Y}
}

// KeyboardMessage is the raw payload of a low-level keyboard hook call.
type KeyboardMessage struct {
	Message  uint32
	VKCode   uint32
	ScanCode uint32
	Flags    uint32
	Time     uint32
}

// MouseMessage is the raw payload of a low-level mouse hook call.
type MouseMessage struct {
	Message   uint32
	X, Y      int32
	MouseData uint32
	Flags     uint32
	Time      uint32
}

// KeyboardState exposes the keyboard state needed to translate a key down
// into a character.
type KeyboardState interface {
	ShiftDown() bool
	CapsLockOn() bool
	ToChar(vk, scan, flags uint32) (rune, bool)
}
