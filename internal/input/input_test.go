package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadLinesFromReader(t *testing.T) {
	r := strings.NewReader("first\n\n  second  \n\nthird\n")
	lines := ReadLinesFromReader(r)

	want := []string{"first", "second", "third"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExpandFlagValuesPlain(t *testing.T) {
	values, stdinUsed := ExpandFlagValues([]string{"food", "transport"}, false)

	if stdinUsed {
		t.Error("plain values should not consume stdin")
	}
	if len(values) != 2 || values[0] != "food" || values[1] != "transport" {
		t.Errorf("values = %v", values)
	}
}

func TestExpandFlagValuesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cats.txt")
	if err := os.WriteFile(path, []byte("food\ntransport\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	values, _ := ExpandFlagValues([]string{"@" + path, "rent"}, false)

	if len(values) != 3 {
		t.Fatalf("got %d values, want 3: %v", len(values), values)
	}
	if values[0] != "food" || values[1] != "transport" || values[2] != "rent" {
		t.Errorf("values = %v", values)
	}
}

func TestExpandFlagValuesMissingFile(t *testing.T) {
	values, _ := ExpandFlagValues([]string{"@/nonexistent/file", "kept"}, false)

	if len(values) != 1 || values[0] != "kept" {
		t.Errorf("missing file should be skipped, got %v", values)
	}
}

func TestExpandStringPlain(t *testing.T) {
	v, stdinUsed := ExpandString("just a note", false)

	if stdinUsed {
		t.Error("plain value should not consume stdin")
	}
	if v != "just a note" {
		t.Errorf("value = %q", v)
	}
}

func TestExpandStringFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, stdinUsed := ExpandString("@"+path, false)

	if stdinUsed {
		t.Error("file value should not consume stdin")
	}
	if v != "line one\nline two" {
		t.Errorf("value = %q, want line breaks preserved and edges trimmed", v)
	}
}

func TestExpandStringMissingFile(t *testing.T) {
	v, _ := ExpandString("@/nonexistent/file", false)

	if v != "" {
		t.Errorf("missing file should yield empty value, got %q", v)
	}
}
