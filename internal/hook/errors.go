package hook

import (
	"errors"
	"fmt"
	"syscall"

	"activitymon/internal/input"
)

var (
	// ErrSubscriptionNotFound is returned when unsubscribing an unknown id.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNilListener is returned when subscribing a nil listener.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrInvalidEventKind is returned for event kinds outside the defined set.
	ErrInvalidEventKind = errors.New("invalid event kind")

	// ErrUnsupported is returned by backends on platforms without input hooks.
	ErrUnsupported = errors.New("system input hooks are not supported on this platform")

	// ErrHookBusy is returned when the system backend already has a hook of
	// the requested kind installed for another manager.
	ErrHookBusy = errors.New("hook already installed by another manager")

	// ErrListenerPanic wraps a value recovered from a panicking listener.
	ErrListenerPanic = errors.New("listener panicked")

	// ErrEventType is returned by typed adapters subscribed to the wrong kind.
	ErrEventType = errors.New("unexpected event type")
)

// HookInstallError reports a failed backend install. The subscription that
// triggered it was not created.
type HookInstallError struct {
	Kind input.HookKind
	Code int
	Err  error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("install %s hook (code %d): %v", e.Kind, e.Code, e.Err)
}

func (e *HookInstallError) Unwrap() error { return e.Err }

// HookUninstallError reports a failed backend uninstall. The manager forgets
// the hook regardless so a later subscription can install a fresh one.
type HookUninstallError struct {
	Kind input.HookKind
	Code int
	Err  error
}

func (e *HookUninstallError) Error() string {
	return fmt.Sprintf("uninstall %s hook (code %d): %v", e.Kind, e.Code, e.Err)
}

func (e *HookUninstallError) Unwrap() error { return e.Err }

// ListenerError reports a listener that returned an error or panicked while
// handling an event.
type ListenerError struct {
	Kind         input.EventKind
	Subscription SubscriptionID
	Err          error
	Stack        []byte
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d for %s: %v", e.Subscription, e.Kind, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// errorCode extracts the system error code carried by err, or -1.
func errorCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}
