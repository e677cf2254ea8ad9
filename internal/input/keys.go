package input

import (
	"fmt"
	"strings"
)

// Key is a Windows virtual-key code.
type Key uint32

// Frequently used keys.
const (
	KeyLButton  Key = 0x01
	KeyRButton  Key = 0x02
	KeyBack     Key = 0x08
	KeyTab      Key = 0x09
	KeyReturn   Key = 0x0D
	KeyShift    Key = 0x10
	KeyControl  Key = 0x11
	KeyMenu     Key = 0x12
	KeyCapital  Key = 0x14
	KeyEscape   Key = 0x1B
	KeySpace    Key = 0x20
	KeyLWin     Key = 0x5B
	KeyRWin     Key = 0x5C
	KeyLShift   Key = 0xA0
	KeyRShift   Key = 0xA1
	KeyLControl Key = 0xA2
	KeyRControl Key = 0xA3
	KeyLMenu    Key = 0xA4
	KeyRMenu    Key = 0xA5
	KeyA        Key = 0x41
	KeyZ        Key = 0x5A
	KeyF1       Key = 0x70
	KeyD0       Key = 0x30
	KeyNumPad0  Key = 0x60
)

type keyName struct {
	key  Key
	name string
}

// namedKeys lists every named key. The first name for a code is canonical,
// later ones are accepted aliases.
var namedKeys = []keyName{
	{0x01, "LButton"}, {0x02, "RButton"}, {0x03, "Cancel"}, {0x04, "MButton"},
	{0x05, "XButton1"}, {0x06, "XButton2"}, {0x08, "Back"}, {0x08, "Backspace"},
	{0x09, "Tab"}, {0x0A, "LineFeed"}, {0x0C, "Clear"},
	{0x0D, "Return"}, {0x0D, "Enter"},
	{0x10, "ShiftKey"}, {0x10, "Shift"}, {0x11, "ControlKey"}, {0x11, "Ctrl"}, {0x11, "Control"},
	{0x12, "Menu"}, {0x12, "Alt"}, {0x13, "Pause"},
	{0x14, "Capital"}, {0x14, "CapsLock"},
	{0x15, "KanaMode"}, {0x15, "HangulMode"}, {0x15, "HanguelMode"},
	{0x17, "JunjaMode"}, {0x18, "FinalMode"}, {0x19, "HanjaMode"}, {0x19, "KanjiMode"},
	{0x1B, "Escape"}, {0x1B, "Esc"},
	{0x1C, "IMEConvert"}, {0x1D, "IMENonconvert"}, {0x1E, "IMEAccept"}, {0x1F, "IMEModeChange"},
	{0x20, "Space"},
	{0x21, "Prior"}, {0x21, "PageUp"}, {0x22, "Next"}, {0x22, "PageDown"},
	{0x23, "End"}, {0x24, "Home"}, {0x25, "Left"}, {0x26, "Up"}, {0x27, "Right"}, {0x28, "Down"},
	{0x29, "Select"}, {0x2A, "Print"}, {0x2B, "Execute"},
	{0x2C, "Snapshot"}, {0x2C, "PrintScreen"},
	{0x2D, "Insert"}, {0x2E, "Delete"}, {0x2F, "Help"},
	{0x5B, "LWin"}, {0x5B, "Win"}, {0x5C, "RWin"}, {0x5D, "Apps"}, {0x5F, "Sleep"},
	{0x6A, "Multiply"}, {0x6B, "Add"}, {0x6C, "Separator"}, {0x6D, "Subtract"},
	{0x6E, "Decimal"}, {0x6F, "Divide"},
	{0x90, "NumLock"}, {0x91, "Scroll"}, {0x91, "ScrollLock"},
	{0xA0, "LShiftKey"}, {0xA1, "RShiftKey"}, {0xA2, "LControlKey"}, {0xA3, "RControlKey"},
	{0xA4, "LMenu"}, {0xA5, "RMenu"},
	{0xA6, "BrowserBack"}, {0xA7, "BrowserForward"}, {0xA8, "BrowserRefresh"}, {0xA9, "BrowserStop"},
	{0xAA, "BrowserSearch"}, {0xAB, "BrowserFavorites"}, {0xAC, "BrowserHome"},
	{0xAD, "VolumeMute"}, {0xAE, "VolumeDown"}, {0xAF, "VolumeUp"},
	{0xB0, "MediaNextTrack"}, {0xB1, "MediaPreviousTrack"}, {0xB2, "MediaStop"}, {0xB3, "MediaPlayPause"},
	{0xB4, "LaunchMail"}, {0xB5, "SelectMedia"}, {0xB6, "LaunchApplication1"}, {0xB7, "LaunchApplication2"},
	{0xBA, "OemSemicolon"}, {0xBA, "Oem1"}, {0xBB, "Oemplus"}, {0xBC, "Oemcomma"},
	{0xBD, "OemMinus"}, {0xBE, "OemPeriod"},
	{0xBF, "OemQuestion"}, {0xBF, "Oem2"}, {0xC0, "Oemtilde"}, {0xC0, "Oem3"},
	{0xDB, "OemOpenBrackets"}, {0xDB, "Oem4"}, {0xDC, "OemPipe"}, {0xDC, "Oem5"},
	{0xDD, "OemCloseBrackets"}, {0xDD, "Oem6"}, {0xDE, "OemQuotes"}, {0xDE, "Oem7"},
	{0xDF, "Oem8"}, {0xE2, "OemBackslash"}, {0xE2, "Oem102"},
	{0xE5, "ProcessKey"}, {0xE7, "Packet"},
	{0xF6, "Attn"}, {0xF7, "Crsel"}, {0xF8, "Exsel"}, {0xF9, "EraseEof"},
	{0xFA, "Play"}, {0xFB, "Zoom"}, {0xFC, "NoName"}, {0xFD, "Pa1"}, {0xFE, "OemClear"},
}

var (
	keyByName = make(map[string]Key)
	nameByKey = make(map[Key]string)
)

func init() {
	add := func(k Key, name string) {
		lower := strings.ToLower(name)
		if _, dup := keyByName[lower]; !dup {
			keyByName[lower] = k
		}
		if _, ok := nameByKey[k]; !ok {
			nameByKey[k] = name
		}
	}
	for _, kn := range namedKeys {
		add(kn.key, kn.name)
	}
	for i := Key(0); i <= 9; i++ {
		add(KeyD0+i, fmt.Sprintf("D%d", i))
		add(KeyD0+i, fmt.Sprintf("%d", i))
		add(KeyNumPad0+i, fmt.Sprintf("NumPad%d", i))
	}
	for c := KeyA; c <= KeyZ; c++ {
		add(c, string(rune(c)))
	}
	for i := Key(0); i < 24; i++ {
		add(KeyF1+i, fmt.Sprintf("F%d", i+1))
	}
}

// ParseKey resolves a key name such as "A", "Enter", "LControlKey" or "F5".
// Matching ignores case.
func ParseKey(name string) (Key, bool) {
	k, ok := keyByName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

func (k Key) String() string {
	if name, ok := nameByKey[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(0x%02X)", uint32(k))
}

// Modifiers is a bit set of modifier keys held while an event happened.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModWin
)

func (m Modifiers) String() string {
	if m == 0 {
		return "None"
	}
	var parts []string
	if m&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if m&ModControl != 0 {
		parts = append(parts, "Control")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if m&ModWin != 0 {
		parts = append(parts, "Win")
	}
	return strings.Join(parts, "+")
}

// Modifier returns the modifier bit a key contributes, or zero.
func (k Key) Modifier() Modifiers {
	switch k {
	case KeyShift, KeyLShift, KeyRShift:
		return ModShift
	case KeyControl, KeyLControl, KeyRControl:
		return ModControl
	case KeyMenu, KeyLMenu, KeyRMenu:
		return ModAlt
	case KeyLWin, KeyRWin:
		return ModWin
	}
	return 0
}

// ModifiersOf folds the modifier bits of keys.
func ModifiersOf(keys []Key) Modifiers {
	var m Modifiers
	for _, k := range keys {
		m |= k.Modifier()
	}
	return m
}
