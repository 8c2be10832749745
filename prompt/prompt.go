// Package prompt assembles the transcription-style options offered before a
// run and resolves a choice to the instruction text sent with the audio.
package prompt

import (
	"fmt"
	"strings"

	"scribe/config"
)

// Option is one selectable transcription style.
type Option struct {
	Name        string
	Description string
	Instruction string
	BuiltIn     bool
}

// The three built-in styles are fixed; user templates never replace them.
var builtIns = []Option{
	{
		Name:        "Simple",
		Description: "plain transcription",
		Instruction: "Transcribe the audio.",
		BuiltIn:     true,
	},
	{
		Name:        "Standard",
		Description: "transcription with takeaways and summary",
		Instruction: "Transcribe the audio. Also, extract key takeaways and a summary.",
		BuiltIn:     true,
	},
	{
		Name:        "Detailed",
		Description: "transcription with takeaways, summary, action items and questions",
		Instruction: "Transcribe the audio. Also, extract key takeaways, a summary, action items, and a list of questions asked.",
		BuiltIn:     true,
	},
}

// BuiltIns returns the fixed options in presentation order.
func BuiltIns() []Option {
	out := make([]Option, len(builtIns))
	copy(out, builtIns)
	return out
}

// Options returns built-ins followed by user templates in stored order.
// Template instruction text is passed through as-is, empty included.
func Options(templates []config.Template) []Option {
	out := BuiltIns()
	for _, t := range templates {
		out = append(out, Option{
			Name:        t.Name,
			Description: t.Description,
			Instruction: t.Instruction,
		})
	}
	return out
}

// Find resolves a name to an option, case-insensitively, built-ins first.
// With duplicate template names the first stored match wins.
func Find(templates []config.Template, name string) (Option, bool) {
	for _, opt := range Options(templates) {
		if strings.EqualFold(opt.Name, name) {
			return opt, true
		}
	}
	return Option{}, false
}

// Synthesize is the meta-prompt asking the model to author an instruction
// for a named template.
func Synthesize(templateName string) string {
	return fmt.Sprintf("You write instructions for an audio transcription assistant. "+
		"Write a single instruction that tells the assistant how to transcribe audio "+
		"for a note template named %q. The instruction must begin with transcribing "+
		"the audio and then describe any additional sections the template name implies. "+
		"Reply with the instruction text only, no preamble and no quotes.", templateName)
}
