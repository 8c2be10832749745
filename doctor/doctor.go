// Package doctor checks the local setup: settings, API key, notes folder,
// log directory and microphone access.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"

	"scribe/audio"
	"scribe/config"
	"scribe/log"
)

// Run executes the diagnostic checks and returns an exit code (0=all pass,
// 1=any fail).
func Run() int {
	fmt.Println("scribe doctor - setup diagnostics")
	fmt.Println("=================================")

	allPass := true

	settings, ok := checkSettings()
	if !ok {
		allPass = false
	}
	if !checkAPIKey(settings) {
		allPass = false
	}
	if !checkNotesDir(settings) {
		allPass = false
	}
	if !checkLogDir() {
		allPass = false
	}
	if !checkMicrophone() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkSettings() (config.Settings, bool) {
	fmt.Println()
	fmt.Println("[1/5] Settings")

	path, err := config.DefaultPath()
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve config location: %v\n", err)
		return config.Defaults(), false
	}

	settings, err := config.NewJSONStore(path).Load()
	if err != nil {
		fmt.Printf("  FAIL: %s unreadable: %v\n", path, err)
		return config.Defaults(), false
	}

	if _, statErr := os.Stat(path); statErr != nil {
		fmt.Printf("  PASS: no settings file yet, using defaults (%s)\n", path)
	} else {
		fmt.Printf("  PASS: loaded %s (%d templates)\n", path, len(settings.Templates))
	}
	return settings, true
}

func checkAPIKey(settings config.Settings) bool {
	fmt.Println()
	fmt.Println("[2/5] API key")

	if settings.ResolveKey() == "" {
		fmt.Println("  FAIL: no API key: set GEMINI_API_KEY or apiKey in settings")
		return false
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		fmt.Println("  PASS: key from GEMINI_API_KEY")
	} else {
		fmt.Println("  PASS: key from settings")
	}
	return true
}

func checkNotesDir(settings config.Settings) bool {
	fmt.Println()
	fmt.Println("[3/5] Notes folder")

	if err := os.MkdirAll(settings.NotesDir, 0o755); err != nil {
		fmt.Printf("  FAIL: cannot create %s: %v\n", settings.NotesDir, err)
		return false
	}

	probe := filepath.Join(settings.NotesDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		fmt.Printf("  FAIL: %s not writable: %v\n", settings.NotesDir, err)
		return false
	}
	os.Remove(probe)

	fmt.Printf("  PASS: %s writable\n", settings.NotesDir)
	return true
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[4/5] Log directory")

	dir, err := log.ResolveDir("")
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve log directory: %v\n", err)
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("  FAIL: cannot create %s: %v\n", dir, err)
		return false
	}

	fmt.Printf("  PASS: %s\n", dir)
	return true
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[5/5] Microphone")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot enumerate devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	fmt.Printf("  PASS: %d capture device(s)\n", len(devices))
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = " (BT)"
		}
		fmt.Printf("    - %s%s\n", d.Name, tag)
	}
	return true
}
