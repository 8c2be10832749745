package prompt

import (
	"strings"
	"testing"

	"scribe/config"
)

func TestBuiltInInstructions(t *testing.T) {
	opts := BuiltIns()
	if len(opts) != 3 {
		t.Fatalf("len = %d, want 3", len(opts))
	}

	want := []struct{ name, instruction string }{
		{"Simple", "Transcribe the audio."},
		{"Standard", "Transcribe the audio. Also, extract key takeaways and a summary."},
		{"Detailed", "Transcribe the audio. Also, extract key takeaways, a summary, action items, and a list of questions asked."},
	}
	for i, w := range want {
		if opts[i].Name != w.name {
			t.Errorf("opts[%d].Name = %q, want %q", i, opts[i].Name, w.name)
		}
		if opts[i].Instruction != w.instruction {
			t.Errorf("opts[%d].Instruction = %q, want %q", i, opts[i].Instruction, w.instruction)
		}
		if !opts[i].BuiltIn {
			t.Errorf("opts[%d].BuiltIn = false", i)
		}
	}
}

func TestOptionsOrderAndPassThrough(t *testing.T) {
	templates := []config.Template{
		{Name: "Standup", Instruction: "Transcribe and group by speaker."},
		{Name: "Empty", Instruction: ""}, // empty instruction passes through
	}

	opts := Options(templates)
	if len(opts) != 5 {
		t.Fatalf("len = %d, want 5", len(opts))
	}
	if opts[3].Name != "Standup" || opts[3].BuiltIn {
		t.Errorf("opts[3] = %+v, want user template Standup", opts[3])
	}
	if opts[4].Instruction != "" {
		t.Errorf("empty instruction altered: %q", opts[4].Instruction)
	}
}

func TestSimpleUnaffectedByUserTemplates(t *testing.T) {
	// A user template shadowing a built-in name must not change the built-in.
	templates := []config.Template{{Name: "Simple", Instruction: "something else"}}

	opt, ok := Find(templates, "simple")
	if !ok {
		t.Fatal("Find(simple) failed")
	}
	if opt.Instruction != "Transcribe the audio." {
		t.Errorf("Instruction = %q, want built-in text", opt.Instruction)
	}
	if !opt.BuiltIn {
		t.Error("built-in should win over shadowing template")
	}
}

func TestFindUserTemplate(t *testing.T) {
	templates := []config.Template{
		{Name: "Standup", Instruction: "first"},
		{Name: "Standup", Instruction: "second"},
	}

	opt, ok := Find(templates, "Standup")
	if !ok {
		t.Fatal("Find(Standup) failed")
	}
	if opt.Instruction != "first" {
		t.Errorf("Instruction = %q, want first stored match", opt.Instruction)
	}

	if _, ok := Find(nil, "Missing"); ok {
		t.Error("Find(Missing) should fail")
	}
}

func TestSynthesizeEmbedsName(t *testing.T) {
	p := Synthesize("Interview")
	if !strings.Contains(p, `"Interview"`) {
		t.Errorf("meta-prompt missing template name: %q", p)
	}
}
