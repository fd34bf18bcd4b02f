package file

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"notes.pdf", "notes.pdf"},
		{"week 1 notes.txt", "week_1_notes.txt"},
		{"a  b\tc.md", "a_b_c.md"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\slides.pptx`, "slides.pptx"},
		{`bad:*?"<>|name.png`, "badname.png"},
		{"...dots...", "dots"},
		{"   ", "file"},
		{"", "file"},
		{`<>:*`, "file"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.name); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStorageKey(t *testing.T) {
	now := time.Now()
	courseID := "11111111-2222-3333-4444-555555555555"

	key := StorageKey(courseID, now, "week 1 notes.txt")

	if !strings.HasPrefix(key, courseID+"/") {
		t.Fatalf("key %q is not namespaced under the course", key)
	}
	if !strings.HasSuffix(key, "_week_1_notes.txt") {
		t.Fatalf("key %q does not end with the sanitized name", key)
	}

	// Same name, same instant, still distinct keys.
	if other := StorageKey(courseID, now, "week 1 notes.txt"); other == key {
		t.Fatal("two keys for the same upload collided")
	}
}
