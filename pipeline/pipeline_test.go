package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"scribe/note"
	"scribe/transcriber"
)

func newRunner(t *testing.T, client transcriber.Client) (*Runner, *[]Stage) {
	t.Helper()
	w := note.NewWriter(t.TempDir())
	w.Open = func(string) error { return nil }

	var stages []Stage
	r := &Runner{
		Client:  client,
		Notes:   w,
		OnStage: func(s Stage) { stages = append(stages, s) },
	}
	return r, &stages
}

func TestRunHappyPath(t *testing.T) {
	fake := transcriber.NewFake("the transcript", nil)
	r, stages := newRunner(t, fake)

	payload := transcriber.Payload{Data: []byte("pcm"), MIME: "audio/wav"}
	res, err := r.Run(context.Background(), payload, "Transcribe the audio.", "My Title")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []Stage{StageTranscribing, StageSaving, StageCompleted}
	if !reflect.DeepEqual(*stages, want) {
		t.Errorf("stages = %v, want %v", *stages, want)
	}
	if res.Text != "the transcript" {
		t.Errorf("Text = %q", res.Text)
	}
	if filepath.Base(res.NotePath) != "My Title.md" {
		t.Errorf("NotePath = %q", res.NotePath)
	}
	data, err := os.ReadFile(res.NotePath)
	if err != nil || string(data) != "the transcript" {
		t.Errorf("note content = %q, err = %v", data, err)
	}
	if fake.LastInstruction != "Transcribe the audio." {
		t.Errorf("instruction = %q", fake.LastInstruction)
	}
}

func TestRunTranscribeFailure(t *testing.T) {
	r, stages := newRunner(t, transcriber.NewFake("", &transcriber.ServiceError{Status: 500, Body: "boom"}))

	_, err := r.Run(context.Background(), transcriber.Payload{}, "x", "")
	if err == nil {
		t.Fatal("expected error")
	}

	want := []Stage{StageTranscribing, StageError}
	if !reflect.DeepEqual(*stages, want) {
		t.Errorf("stages = %v, want %v", *stages, want)
	}
}

func TestRunSaveFailure(t *testing.T) {
	fake := transcriber.NewFake("text", nil)
	r, stages := newRunner(t, fake)
	// Point the writer at a path that cannot be a directory.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r.Notes.Dir = filepath.Join(blocker, "notes")

	if _, err := r.Run(context.Background(), transcriber.Payload{}, "x", ""); err == nil {
		t.Fatal("expected error")
	}

	want := []Stage{StageTranscribing, StageSaving, StageError}
	if !reflect.DeepEqual(*stages, want) {
		t.Errorf("stages = %v, want %v", *stages, want)
	}
}

func TestRunOpenFailure(t *testing.T) {
	r, stages := newRunner(t, transcriber.NewFake("text", nil))
	r.Notes.Open = func(string) error { return errors.New("no handler") }

	if _, err := r.Run(context.Background(), transcriber.Payload{}, "x", ""); err == nil {
		t.Fatal("expected error")
	}
	if last := (*stages)[len(*stages)-1]; last != StageError {
		t.Errorf("last stage = %v, want error", last)
	}
}

func TestRunEmptyPayloadStillSubmitted(t *testing.T) {
	fake := transcriber.NewFake("(no speech)", nil)
	r, _ := newRunner(t, fake)

	if _, err := r.Run(context.Background(), transcriber.Payload{MIME: "audio/wav"}, "x", ""); err != nil {
		t.Fatal(err)
	}
	if fake.Calls != 1 {
		t.Errorf("Calls = %d, want 1 (zero-length payload must be attempted)", fake.Calls)
	}
	if len(fake.LastPayload.Data) != 0 {
		t.Errorf("payload data = %v, want empty", fake.LastPayload.Data)
	}
}

func TestStageTransitions(t *testing.T) {
	valid := []struct{ from, to Stage }{
		{StageTranscribing, StageSaving},
		{StageTranscribing, StageError},
		{StageSaving, StageCompleted},
		{StageSaving, StageError},
	}
	for _, tt := range valid {
		if !validTransition(tt.from, tt.to) {
			t.Errorf("validTransition(%v, %v) = false", tt.from, tt.to)
		}
	}

	invalid := []struct{ from, to Stage }{
		{StageSaving, StageTranscribing}, // no back-transitions
		{StageCompleted, StageSaving},    // terminal
		{StageError, StageTranscribing},  // terminal
		{StageTranscribing, StageCompleted},
	}
	for _, tt := range invalid {
		if validTransition(tt.from, tt.to) {
			t.Errorf("validTransition(%v, %v) = true", tt.from, tt.to)
		}
	}

	if !StageCompleted.Terminal() || !StageError.Terminal() {
		t.Error("completed and error must be terminal")
	}
	if StageTranscribing.Terminal() || StageSaving.Terminal() {
		t.Error("active stages must not be terminal")
	}
}

func TestTrackerAdmission(t *testing.T) {
	var tr Tracker

	token, err := tr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if token == "" {
		t.Fatal("empty run token")
	}
	if !tr.Active() {
		t.Error("Active = false during run")
	}

	if _, err := tr.Begin(); !errors.Is(err, ErrRunActive) {
		t.Errorf("second Begin err = %v, want ErrRunActive", err)
	}

	tr.End("stale-token") // ignored
	if !tr.Active() {
		t.Error("End with stale token released the slot")
	}

	tr.End(token)
	if tr.Active() {
		t.Error("Active = true after End")
	}
	if _, err := tr.Begin(); err != nil {
		t.Errorf("Begin after End: %v", err)
	}
}
