// Package note persists transcription text as Markdown files inside the
// notes folder.
package note

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/browser"
)

// Characters that are unsafe in filenames across platforms.
const illegalChars = `\/:*?"<>|`

// Sanitize makes a user title safe for use as a filename: illegal characters
// become '-', whitespace runs collapse to a single space, and trailing dots
// and spaces are stripped. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(title string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) {
			return '-'
		}
		return r
	}, title)

	collapsed := strings.Join(strings.FieldsFunc(mapped, unicode.IsSpace), " ")
	return strings.TrimRight(collapsed, ". ")
}

// Filename derives the note filename (without extension) from an optional
// title. An empty or fully-sanitized-away title falls back to a timestamped
// name.
func Filename(title string) string {
	if name := Sanitize(title); name != "" {
		return name
	}
	return fmt.Sprintf("transcription-%d", time.Now().UnixMilli())
}

// Writer saves notes under Dir and opens them with the OS handler.
type Writer struct {
	Dir string

	// Open is called with the saved path; overridable in tests.
	Open func(path string) error
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Open: browser.OpenFile}
}

// Save writes text to <Dir>/<name>.md and returns the path. The notes folder
// is created if absent; pre-existence is not an error. An existing note with
// the same name is overwritten.
func (w *Writer) Save(text, title string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating notes folder: %w", err)
	}

	path := filepath.Join(w.Dir, Filename(title)+".md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	return path, nil
}
