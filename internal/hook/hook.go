// Package hook installs system-wide keyboard and mouse hooks on demand and
// fans decoded input events out to subscribed listeners.
//
// A Manager owns one backend hook per input.HookKind. The hook is installed
// when the first listener for any event kind of that hook subscribes and
// removed when the last one unsubscribes. Listeners run synchronously on the
// goroutine the backend delivers raw messages on and must return promptly.
package hook

import (
	"fmt"

	"activitymon/internal/input"
)

// Decision tells the backend what to do with a raw message.
type Decision int

const (
	// Forward passes the message on to the next hook in the system chain.
	Forward Decision = iota
	// Suppress keeps the message from reaching the rest of the system.
	Suppress
)

func (d Decision) String() string {
	if d == Suppress {
		return "suppress"
	}
	return "forward"
}

// RawMessage is one raw hook notification. Only the payload matching Kind is
// meaningful.
type RawMessage struct {
	Kind     input.HookKind
	Keyboard input.KeyboardMessage
	Mouse    input.MouseMessage
}

// Proc receives raw messages from a backend.
type Proc func(RawMessage) Decision

// Backend is the system capture facility.
type Backend interface {
	// Install registers proc as a system-wide hook of the given kind. The
	// backend keeps proc reachable until the returned Hook is unhooked.
	Install(kind input.HookKind, proc Proc) (Hook, error)
}

// Hook is an installed backend hook. Unhook releases it; after Unhook
// returns the backend no longer calls the hook's Proc.
type Hook interface {
	Unhook() error
}

// SubscriptionID identifies a listener registration.
type SubscriptionID uint64

// Listener receives semantic events. A returned error is reported through
// the manager's error handling and never stops dispatch.
type Listener interface {
	HandleEvent(kind input.EventKind, ev input.Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(kind input.EventKind, ev input.Event) error

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(kind input.EventKind, ev input.Event) error {
	return f(kind, ev)
}

// OnKey adapts a KeyDown/KeyUp callback.
func OnKey(fn func(*input.KeyEvent)) Listener {
	return ListenerFunc(func(kind input.EventKind, ev input.Event) error {
		ke, ok := ev.(*input.KeyEvent)
		if !ok {
			return eventTypeError(kind, ev)
		}
		fn(ke)
		return nil
	})
}

// OnKeyPress adapts a KeyPress callback.
func OnKeyPress(fn func(*input.KeyPressEvent)) Listener {
	return ListenerFunc(func(kind input.EventKind, ev input.Event) error {
		ke, ok := ev.(*input.KeyPressEvent)
		if !ok {
			return eventTypeError(kind, ev)
		}
		fn(ke)
		return nil
	})
}

// OnMouse adapts a callback for any mouse event kind.
func OnMouse(fn func(*input.MouseEvent)) Listener {
	return ListenerFunc(func(kind input.EventKind, ev input.Event) error {
		me, ok := ev.(*input.MouseEvent)
		if !ok {
			return eventTypeError(kind, ev)
		}
		fn(me)
		return nil
	})
}

func eventTypeError(kind input.EventKind, ev input.Event) error {
	return fmt.Errorf("%w: %s delivered %T", ErrEventType, kind, ev)
}

// Subscriber is the subscription surface of a Manager.
type Subscriber interface {
	Subscribe(kind input.EventKind, l Listener) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID) error
}
