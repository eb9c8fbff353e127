package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWrapTextSplitsAtSpaces(t *testing.T) {
	lines := wrapText("quiero un café con leche", 10)
	want := []string{"quiero un", "café con", "leche"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWrapTextForcedSplitKeepsRunesIntact(t *testing.T) {
	// No spaces, every character multi-byte: a forced split at a byte
	// boundary would garble it.
	text := strings.Repeat("ñáéíóú", 5)
	for _, width := range []int{1, 3, 7} {
		for i, line := range wrapText(text, width) {
			if !utf8.ValidString(line) {
				t.Fatalf("width %d line %d is not valid UTF-8: %q", width, i, line)
			}
			if n := utf8.RuneCountInString(line); n > width {
				t.Errorf("width %d line %d has %d runes", width, i, n)
			}
		}
	}
	if got := strings.Join(wrapText(text, 7), ""); got != text {
		t.Errorf("forced wrap lost content: %q", got)
	}
}

func TestWrapTextEmpty(t *testing.T) {
	lines := wrapText("", 10)
	if len(lines) != 1 || lines[0] != "" {
		t.Errorf("lines = %q, want one empty line", lines)
	}
}
