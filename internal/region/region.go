// Package region turns the global MouseMove stream into Enter and Leave
// notifications relative to one top-level window.
package region

import (
	"errors"
	"fmt"

	"activitymon/internal/input"
)

var (
	// ErrWindowNotFound is returned when no window matches a lookup.
	ErrWindowNotFound = errors.New("window not found")

	// ErrUnsupported is returned by window lookups on platforms without a
	// window source.
	ErrUnsupported = errors.New("window tracking is not supported on this platform")

	// ErrCallbackNotFound is returned when removing an unknown callback.
	ErrCallbackNotFound = errors.New("callback not found")
)

// WindowID is an opaque window handle.
type WindowID uintptr

func (w WindowID) String() string {
	return fmt.Sprintf("0x%X", uintptr(w))
}

// ShowState is how a window is currently displayed.
type ShowState int

const (
	Normal ShowState = iota
	Minimized
	Maximized
)

func (s ShowState) String() string {
	switch s {
	case Minimized:
		return "minimized"
	case Maximized:
		return "maximized"
	}
	return "normal"
}

// Rect is a screen rectangle. Both edges are part of the rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Contains reports whether p lies on or within r.
func (r Rect) Contains(p input.Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Snapshot is the state of a window at one instant.
type Snapshot struct {
	State ShowState
	Rect  Rect
}

// WindowSource looks windows up. Snapshot reports false when the window is
// gone or cannot be queried.
type WindowSource interface {
	Snapshot(id WindowID) (Snapshot, bool)
}

// WindowSourceFunc adapts a function to WindowSource.
type WindowSourceFunc func(id WindowID) (Snapshot, bool)

// Snapshot calls f.
func (f WindowSourceFunc) Snapshot(id WindowID) (Snapshot, bool) {
	return f(id)
}

// Tristate is whether the cursor is over the window, or Unknown before the
// first observation.
type Tristate int

const (
	Unknown Tristate = iota
	Inside
	Outside
)

func (t Tristate) String() string {
	switch t {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	}
	return "unknown"
}

// Known reports whether the state has been observed.
func (t Tristate) Known() bool {
	return t != Unknown
}
