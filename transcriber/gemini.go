package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"scribe/prompt"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the generateContent endpoint with inline audio plus an
// instruction, or with a bare text prompt.
type Gemini struct {
	client  *TracedClient
	baseURL string
	apiKey  string
	model   string

	// OnMetrics receives per-request network timings when set.
	OnMetrics func(op string, m *NetworkMetrics)
}

func NewGemini(apiKey, model string) *Gemini {
	return NewGeminiWithBaseURL(apiKey, model, defaultBaseURL)
}

func NewGeminiWithBaseURL(apiKey, model, baseURL string) *Gemini {
	return &Gemini{
		client:  NewTracedClient(baseURL),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Warm pre-opens the HTTPS connection; safe to call from a goroutine.
func (g *Gemini) Warm() { g.client.Warm() }

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends the payload bytes base64-encoded together with the
// instruction text. An empty payload is still submitted: the service, not
// the client, decides what to do with zero-length audio.
func (g *Gemini) Transcribe(ctx context.Context, payload Payload, instruction string) (string, error) {
	parts := []geminiPart{
		{InlineData: &geminiInlineData{
			MIMEType: payload.MIME,
			Data:     base64.StdEncoding.EncodeToString(payload.Data),
		}},
		{Text: instruction},
	}
	return g.generate(ctx, "transcribe", parts)
}

// SynthesizeInstruction asks the same model to author an instruction string
// for a template name.
func (g *Gemini) SynthesizeInstruction(ctx context.Context, templateName string) (string, error) {
	return g.generate(ctx, "synthesize", []geminiPart{{Text: prompt.Synthesize(templateName)}})
}

func (g *Gemini) generate(ctx context.Context, op string, parts []geminiPart) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingKey
	}

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	if g.OnMetrics != nil {
		g.OnMetrics(op, resp.Metrics)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", &ServiceError{Status: resp.StatusCode, Body: serviceMessage(resp.Body)}
	}

	var gResp geminiResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return "", &ServiceError{Status: resp.StatusCode, Body: "unparseable response: " + err.Error()}
	}

	var sb strings.Builder
	for _, cand := range gResp.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", &ServiceError{Status: resp.StatusCode, Body: "empty response"}
	}
	return text, nil
}

// serviceMessage extracts the API error message when present, otherwise a
// truncated raw body.
func serviceMessage(body []byte) string {
	var gResp geminiResponse
	if err := json.Unmarshal(body, &gResp); err == nil && gResp.Error.Message != "" {
		return gResp.Error.Message
	}
	const max = 200
	s := string(body)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
