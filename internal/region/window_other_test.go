//go:build !windows

package region

import (
	"errors"
	"testing"
)

func TestWindowLookupUnsupported(t *testing.T) {
	if _, err := ProcessWindow(1); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if _, err := FindWindow("Notepad"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if _, ok := SystemWindows().Snapshot(1); ok {
		t.Error("Expected no snapshot")
	}
}
