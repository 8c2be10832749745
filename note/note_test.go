package note

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"Team: Meeting/Alex? ", "Team- Meeting-Alex-"},
		{`a\b/c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"  spaced \t out  ", "spaced out"},
		{"trailing dots...", "trailing dots"},
		{"trailing dot then space. ", "trailing dot then space"},
		{"", ""},
		{"   ", ""},
		{"...", ""},
		{"plain title", "plain title"},
	} {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"Team: Meeting/Alex? ",
		"a .",
		"weird***name???",
		"  lots   of\twhitespace  ",
		"ends with dash- ",
		"", "...", "normal",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestFilenameFallback(t *testing.T) {
	re := regexp.MustCompile(`^transcription-\d+$`)
	for _, in := range []string{"", "   ", "???"} {
		if got := Filename(in); !re.MatchString(got) {
			t.Errorf("Filename(%q) = %q, want transcription-<digits>", in, got)
		}
	}

	if got := Filename("My Note"); got != "My Note" {
		t.Errorf("Filename(My Note) = %q", got)
	}
}

func TestSaveWritesMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	w := NewWriter(dir)

	path, err := w.Save("hello transcript", "Standup: Monday")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "Standup- Monday.md" {
		t.Errorf("path = %q, want Standup- Monday.md", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello transcript" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveFolderPreexistenceIsNotAnError(t *testing.T) {
	dir := t.TempDir() // already exists
	w := NewWriter(dir)

	if _, err := w.Save("one", "a"); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if _, err := w.Save("two", "b"); err != nil {
		t.Fatalf("second Save: %v", err)
	}
}

func TestSaveOverwritesSameTitle(t *testing.T) {
	w := NewWriter(t.TempDir())

	if _, err := w.Save("first", "same"); err != nil {
		t.Fatal(err)
	}
	path, err := w.Save("second", "same")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want overwrite", data)
	}
}

func TestSaveNoTitleUsesTimestampName(t *testing.T) {
	w := NewWriter(t.TempDir())

	path, err := w.Save("text", "")
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "transcription-") || !strings.HasSuffix(base, ".md") {
		t.Errorf("base = %q, want transcription-<digits>.md", base)
	}
}
