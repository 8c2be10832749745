//go:build darwin

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// One persistent mono playback device; the data callback reads the active
// cue through an atomic pointer, mirroring the capture backend.
type cueState struct {
	samples []int16
	pos     int
}

var (
	playbackCtx *malgo.AllocatedContext
	playbackDev *malgo.Device
	active      atomic.Pointer[cueState]
	devMu       sync.Mutex
	devOnce     sync.Once
)

func initPlayback() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{Data: fill})
	if err != nil {
		ctx.Uninit()
		return
	}
	playbackCtx = ctx
	playbackDev = dev
}

// fill is malgo's data callback: copy the remainder of the active cue,
// zero-fill the rest, drop the cue once exhausted.
func fill(out, _ []byte, frameCount uint32) {
	for i := range out {
		out[i] = 0
	}

	st := active.Load()
	if st == nil {
		return
	}

	n := 0
	for ; n < int(frameCount) && st.pos+n < len(st.samples); n++ {
		s := st.samples[st.pos+n]
		out[n*2] = byte(s)
		out[n*2+1] = byte(s >> 8)
	}
	st.pos += n
	if st.pos >= len(st.samples) {
		active.Store(nil)
	}
}

func play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	devOnce.Do(initPlayback)

	devMu.Lock()
	defer devMu.Unlock()
	if playbackDev == nil {
		return
	}

	// Restarting from a clean stop cuts off a still-playing cue, which is
	// the behavior we want for rapid start/stop presses.
	playbackDev.Stop()
	active.Store(&cueState{samples: samples})
	if err := playbackDev.Start(); err != nil {
		// Device may be stale after sleep/wake; rebuild once.
		playbackDev.Uninit()
		playbackDev = nil
		if playbackCtx != nil {
			playbackCtx.Uninit()
			playbackCtx = nil
		}
		initPlayback()
		if playbackDev != nil {
			playbackDev.Start()
		}
	}
}
