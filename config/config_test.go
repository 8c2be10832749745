package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.NotesDir == "" {
		t.Error("NotesDir should have a default")
	}
	if len(cfg.Templates) != 0 {
		t.Errorf("Templates = %v, want empty", cfg.Templates)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewJSONStore(path)

	want := Settings{
		APIKey:   "k-123",
		Model:    "gemini-2.5-pro",
		NotesDir: "/tmp/notes",
		Templates: []Template{
			{Name: "Meeting", Description: "meeting notes", Instruction: "Transcribe and list attendees."},
			{Name: "Meeting", Description: "duplicate name is allowed", Instruction: ""},
		},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.APIKey != want.APIKey || got.Model != want.Model || got.NotesDir != want.NotesDir {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Templates) != 2 {
		t.Fatalf("Templates len = %d, want 2", len(got.Templates))
	}
	if got.Templates[0] != want.Templates[0] {
		t.Errorf("Templates[0] = %+v, want %+v", got.Templates[0], want.Templates[0])
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"apiKey":"k"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want default", cfg.Model)
	}
	if cfg.NotesDir == "" {
		t.Error("NotesDir should fall back to default")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewJSONStore(path).Load(); err == nil {
		t.Error("expected error for corrupt settings file")
	}
}

func TestResolveKeyEnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg := Settings{APIKey: "file-key"}
	if got := cfg.ResolveKey(); got != "env-key" {
		t.Errorf("ResolveKey = %q, want env-key", got)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if got := cfg.ResolveKey(); got != "file-key" {
		t.Errorf("ResolveKey = %q, want file-key", got)
	}
}
