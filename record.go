package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"scribe/audio"
	"scribe/encoder"
	"scribe/transcriber"
)

// recordSession buffers capture callbacks into an encoder until stopped.
// Encoding runs concurrently with capture so stop only flushes the tail.
type recordSession struct {
	capture audio.CaptureDevice
	enc     encoder.Encoder

	mu        sync.Mutex
	sampleBuf []int16
	frames    uint64
	stopped   bool

	// sendMu serializes blockChan senders against its close in stop: a
	// callback that passed the stopped check may still be blocked on a
	// full channel when stop runs.
	sendMu     sync.Mutex
	chanClosed bool

	blockChan  chan []int16
	encodeDone chan struct{}
	encodeErr  error
	encodeTime time.Duration
}

func newRecordSession(capture audio.CaptureDevice, enc encoder.Encoder) *recordSession {
	s := &recordSession{
		capture:    capture,
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(s.encodeDone)
		for block := range s.blockChan {
			start := time.Now()
			if err := s.enc.EncodeBlock(block); err != nil && s.encodeErr == nil {
				s.encodeErr = err
			}
			s.encodeTime += time.Since(start)
		}
	}()

	return s
}

// begin wires the capture callback and starts the device. onLevel receives
// the RMS amplitude of each chunk for the live waveform.
func (s *recordSession) begin(onLevel func(level float64)) error {
	s.capture.SetCallback(func(data []byte, frameCount uint32) {
		s.feed(data, frameCount)
		if onLevel != nil && len(data) > 1 {
			onLevel(rmsLevel(data))
		}
	})

	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		return err
	}
	return nil
}

func (s *recordSession) feed(pcm []byte, frameCount uint32) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.frames += uint64(frameCount)
	for i := 0; i+1 < len(pcm); i += 2 {
		s.sampleBuf = append(s.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	var blocks [][]int16
	for len(s.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, s.sampleBuf[:encoder.BlockSize])
		s.sampleBuf = s.sampleBuf[encoder.BlockSize:]
		blocks = append(blocks, block)
	}
	s.mu.Unlock()

	if len(blocks) == 0 {
		return
	}
	s.sendMu.Lock()
	if !s.chanClosed {
		for _, block := range blocks {
			s.blockChan <- block
		}
	}
	s.sendMu.Unlock()
}

// stop finalizes the session into a payload. The first call wins and
// reports finalized=true; later calls are no-ops. The device is released
// unconditionally, including when encoding failed.
func (s *recordSession) stop() (payload transcriber.Payload, finalized bool, err error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return transcriber.Payload{}, false, nil
	}
	s.stopped = true
	tail := s.sampleBuf
	s.sampleBuf = nil
	s.mu.Unlock()

	s.capture.Stop()
	s.capture.ClearCallback()

	// The encoder goroutine keeps draining, so in-flight feeds finish and
	// release sendMu even when the channel is full.
	s.sendMu.Lock()
	if len(tail) > 0 {
		s.blockChan <- tail
	}
	s.chanClosed = true
	close(s.blockChan)
	s.sendMu.Unlock()
	<-s.encodeDone

	if s.encodeErr != nil {
		return transcriber.Payload{}, true, s.encodeErr
	}
	if err := s.enc.Close(); err != nil {
		return transcriber.Payload{}, true, err
	}

	return transcriber.Payload{Data: s.enc.Bytes(), MIME: s.enc.MIME()}, true, nil
}

// seconds of audio captured so far.
func (s *recordSession) seconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) / float64(encoder.SampleRate)
}

func (s *recordSession) encodeMillis() float64 {
	return float64(s.encodeTime.Milliseconds())
}

func rmsLevel(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
