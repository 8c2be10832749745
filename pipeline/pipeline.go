// Package pipeline runs one capture-to-note transcription end to end and
// tracks its progress stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"scribe/note"
	"scribe/transcriber"
)

// Stage is the progress indicator state. Runs move strictly forward:
// transcribing -> saving -> completed, or from either active stage to error.
type Stage int

const (
	StageTranscribing Stage = iota
	StageSaving
	StageCompleted
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageTranscribing:
		return "transcribing"
	case StageSaving:
		return "saving"
	case StageCompleted:
		return "completed"
	case StageError:
		return "error"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether the run is over in this stage.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

func validTransition(from, to Stage) bool {
	switch from {
	case StageTranscribing:
		return to == StageSaving || to == StageError
	case StageSaving:
		return to == StageCompleted || to == StageError
	default:
		return false
	}
}

// ErrRunActive is returned when a second run is started while one is in
// flight. There is no queue: the caller reports and drops the attempt.
var ErrRunActive = errors.New("a transcription run is already active")

// Tracker is the admission guard for the single allowed active run.
type Tracker struct {
	mu    sync.Mutex
	token string
}

// Begin claims the run slot and returns its token.
func (t *Tracker) Begin() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" {
		return "", ErrRunActive
	}
	t.token = uuid.NewString()
	return t.token, nil
}

// End releases the slot. Stale tokens from an already-ended run are ignored.
func (t *Tracker) End(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == token {
		t.token = ""
	}
}

func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token != ""
}

// Result is what a finished run produced.
type Result struct {
	Text     string
	NotePath string
}

// Runner executes transcribe -> save for one payload. The title is threaded
// through explicitly; there is no shared pending-title state.
type Runner struct {
	Client transcriber.Client
	Notes  *note.Writer

	// OnStage observes progress transitions; rendering is a projection of
	// these, nothing else. May be nil.
	OnStage func(Stage)
}

func (r *Runner) emit(from *Stage, to Stage) {
	if !validTransition(*from, to) {
		return
	}
	*from = to
	if r.OnStage != nil {
		r.OnStage(to)
	}
}

// Run performs one pipeline run. Every error ends the run at the stage where
// it occurred; nothing is retried and no partial result is kept.
func (r *Runner) Run(ctx context.Context, payload transcriber.Payload, instruction, title string) (Result, error) {
	stage := StageTranscribing
	if r.OnStage != nil {
		r.OnStage(stage)
	}

	text, err := r.Client.Transcribe(ctx, payload, instruction)
	if err != nil {
		r.emit(&stage, StageError)
		return Result{}, err
	}

	r.emit(&stage, StageSaving)

	path, err := r.Notes.Save(text, title)
	if err != nil {
		r.emit(&stage, StageError)
		return Result{}, err
	}
	if r.Notes.Open != nil {
		if err := r.Notes.Open(path); err != nil {
			r.emit(&stage, StageError)
			return Result{}, fmt.Errorf("opening note: %w", err)
		}
	}

	r.emit(&stage, StageCompleted)
	return Result{Text: text, NotePath: path}, nil
}
