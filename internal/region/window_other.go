//go:build !windows

package region

type systemWindows struct{}

// SystemWindows returns a WindowSource that never finds a window.
func SystemWindows() WindowSource {
	return systemWindows{}
}

func (systemWindows) Snapshot(WindowID) (Snapshot, bool) {
	return Snapshot{}, false
}

func FindWindow(title string) (WindowID, error) {
	return 0, ErrUnsupported
}

func ProcessWindow(pid uint32) (WindowID, error) {
	return 0, ErrUnsupported
}
