package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const DefaultModel = "gemini-2.5-flash"

// Template is a user-defined transcription style. Names are free-form:
// duplicates and empty names are allowed.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

type Settings struct {
	APIKey    string     `json:"apiKey"`
	Model     string     `json:"model"`
	NotesDir  string     `json:"notesDir"`
	Templates []Template `json:"templates"`
}

// ResolveKey returns the API key, preferring the GEMINI_API_KEY environment
// variable over the stored value.
func (s Settings) ResolveKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return s.APIKey
}

func Defaults() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Settings{
		Model:    DefaultModel,
		NotesDir: filepath.Join(home, "Documents", "Transcriptions"),
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scribe", "settings.json"), nil
}

type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads settings from disk, merging over defaults. A missing file is
// not an error: first run returns defaults.
func (s *JSONStore) Load() (Settings, error) {
	cfg := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Settings{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.NotesDir == "" {
		cfg.NotesDir = Defaults().NotesDir
	}
	return cfg, nil
}

// Save writes settings as indented JSON, creating parent directories.
func (s *JSONStore) Save(cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}
