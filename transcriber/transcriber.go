// Package transcriber sends audio payloads to a remote inference service
// and returns the generated text.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Payload is one in-memory audio blob with its content type. It lives for a
// single pipeline run and is never persisted.
type Payload struct {
	Data []byte
	MIME string
}

// MIMEForPath maps an audio file extension to the content type sent to the
// service. Unknown extensions fall through to octet-stream and are rejected
// by the service rather than guessed at locally.
func MIMEForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mp3"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".aac", ".m4a":
		return "audio/aac"
	case ".aiff", ".aif":
		return "audio/aiff"
	default:
		return "application/octet-stream"
	}
}

// ErrMissingKey is returned before any request is issued when no API key is
// configured.
var ErrMissingKey = errors.New("no API key configured: set GEMINI_API_KEY or apiKey in settings")

// AuthError means the service rejected the configured key.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (HTTP %d): check the configured API key", e.Status)
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError means the service answered but unusably: a non-2xx status or
// an empty result.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error (HTTP %d): %s", e.Status, e.Body)
}

// Client is the remote inference surface the pipeline depends on. Both calls
// are single-shot: no streaming, no retry, no cancellation once issued.
type Client interface {
	Name() string
	Transcribe(ctx context.Context, payload Payload, instruction string) (string, error)
	SynthesizeInstruction(ctx context.Context, templateName string) (string, error)
}
