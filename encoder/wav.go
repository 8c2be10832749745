package encoder

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// WAVEncoder writes canonical 16-bit PCM WAV. The header is patched with the
// final sizes on Close.
type WAVEncoder struct {
	buf         bytes.Buffer
	totalFrames uint64
	closed      bool
}

func NewWAV() *WAVEncoder {
	e := &WAVEncoder{}
	e.buf.Write(make([]byte, wavHeaderSize))
	return e
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	pcm := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	e.buf.Write(pcm)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	b := e.buf.Bytes()
	dataLen := uint32(len(b) - wavHeaderSize)
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)
	blockAlign := uint16(Channels * BitsPerSample / 8)

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], 36+dataLen)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1) // PCM
	binary.LittleEndian.PutUint16(b[22:], Channels)
	binary.LittleEndian.PutUint32(b[24:], SampleRate)
	binary.LittleEndian.PutUint32(b[28:], byteRate)
	binary.LittleEndian.PutUint16(b[32:], blockAlign)
	binary.LittleEndian.PutUint16(b[34:], BitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:], dataLen)
	return nil
}

func (e *WAVEncoder) Bytes() []byte { return e.buf.Bytes() }

func (e *WAVEncoder) TotalFrames() uint64 { return e.totalFrames }

func (e *WAVEncoder) MIME() string { return "audio/wav" }
