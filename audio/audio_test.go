package audio

import (
	"errors"
	"testing"
)

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM5", true},
		{"Jabra Elite 85t", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Scarlett 2i2", false},
	} {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassifyInitErr(t *testing.T) {
	err := classifyInitErr(errors.New("operation not authorized by user"))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}

	err = classifyInitErr(errors.New("device init failed: -2"))
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestFakeCaptureDeliversChunks(t *testing.T) {
	pcm := make([]byte, fakeFrameSize*fakeBytesPerFrame*2+10)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	ctx := NewFakeContextPCM(pcm)
	capture, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}

	var got []byte
	capture.SetCallback(func(data []byte, frameCount uint32) {
		got = append(got, data...)
	})
	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}
	capture.Stop()
	capture.ClearCallback()

	if len(got) != len(pcm) {
		t.Fatalf("got %d bytes, want %d", len(got), len(pcm))
	}
	for i := range got {
		if got[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestFakeCaptureNoCallbackIsFine(t *testing.T) {
	ctx := NewFakeContextPCM(make([]byte, 100))
	capture, err := ctx.NewCapture(nil, CaptureConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}
	capture.Stop()
}
