//go:build !windows

package osutils

import (
	"fmt"
	"runtime"
)

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// IsElevated is a stub for non-Windows platforms
func IsElevated() bool {
	return false
}

// NudgeMouse is not supported outside Windows
func NudgeMouse() error {
	return fmt.Errorf("NudgeMouse not supported on %s", runtime.GOOS)
}
