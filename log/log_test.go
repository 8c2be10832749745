package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("SCRIBE_LOG_PATH", "/tmp/scribe-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/scribe-env-log" {
		t.Errorf("got %q, want /tmp/scribe-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("SCRIBE_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("default dir should not be empty")
	}
	if !strings.Contains(got, "scribe") {
		t.Errorf("default dir %q should contain app name", got)
	}
}

func TestInitAndNoteSaved(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	SessionStart("gemini", "gemini-2.5-flash", "flac")
	Stage("transcribing")
	NoteSaved("/notes/meeting.md")
	Request(RequestMetrics{Op: "transcribe", TotalMs: 420, AudioS: 3.5}, "gemini-2.5-flash")
	SessionEnd(1)
	Close()

	diag, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"session_start", "pipeline_stage", "inference_request", "session_end"} {
		if !strings.Contains(string(diag), want) {
			t.Errorf("diagnostics log missing %q", want)
		}
	}

	notes, err := os.ReadFile(filepath.Join(tmp, "notes_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(notes), "/notes/meeting.md") {
		t.Errorf("notes log missing saved path, got %q", notes)
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	// Must not panic with no files open.
	Info("nothing")
	Warnf("still %s", "nothing")
	NoteSaved("/nowhere.md")
	Stage("saving")
}
