package transcriber

import "context"

// Fake is a canned client for tests and -fake runs. It records the last
// payload and instruction it was given.
type Fake struct {
	Text string
	Err  error

	LastPayload     Payload
	LastInstruction string
	Calls           int
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(_ context.Context, payload Payload, instruction string) (string, error) {
	f.Calls++
	f.LastPayload = payload
	f.LastInstruction = instruction
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *Fake) SynthesizeInstruction(_ context.Context, templateName string) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return "Transcribe the audio for " + templateName + ".", nil
}
