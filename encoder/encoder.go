// Package encoder turns captured PCM blocks into a payload the inference
// service accepts.
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	// Close finalizes the container; Bytes is valid only afterwards.
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	MIME() string
}

// New returns the encoder for a -format value.
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWAV(), nil
	case "flac":
		return NewFLAC()
	default:
		return nil, fmt.Errorf("unknown format %q (use wav or flac)", format)
	}
}
