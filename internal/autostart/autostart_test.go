package autostart

import (
	"bytes"
	"strings"
	"testing"
)

func TestWritePlist(t *testing.T) {
	var buf bytes.Buffer
	if err := writePlist(&buf, "/Applications/activitymon", []string{"-no-tray", "-events", "KeyUp"}); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"<string>com.activitymon.agent</string>",
		"<string>/Applications/activitymon</string>",
		"<string>-no-tray</string>",
		"<string>KeyUp</string>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected plist to contain %q:\n%s", want, out)
		}
	}
}
