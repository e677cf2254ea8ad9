//go:build !windows

package hook

import "activitymon/internal/input"

type unsupportedBackend struct{}

// SystemBackend returns a backend whose installs always fail with
// ErrUnsupported; low-level hooks exist only on Windows.
func SystemBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Install(kind input.HookKind, proc Proc) (Hook, error) {
	return nil, ErrUnsupported
}

// SystemKeyboard returns nil on platforms without low-level hooks.
func SystemKeyboard() input.KeyboardState {
	return nil
}
