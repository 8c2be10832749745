// Package beep plays short audible cues for recording start, recording end
// and pipeline failure. Playback errors are swallowed: cues are best-effort.
package beep

import (
	"math"
	"sync"
)

const sampleRate = 44100

var (
	disabled  bool
	synthOnce sync.Once

	startCue []int16
	endCue   []int16
	errorCue []int16
)

// Disable turns all cues off; used by headless runs.
func Disable() { disabled = true }

// tone renders a mono sine burst with an exponential decay envelope.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * math.Exp(-t*decay))
	}
	return samples
}

func synth() {
	// Start: short high tick. End: lower and a touch longer. Error: low
	// double buzz with a gap between.
	startCue = tone(1200, 0.12, 0.5, 60)
	endCue = tone(900, 0.16, 0.5, 40)

	buzz := tone(350, 0.08, 0.6, 30)
	gap := make([]int16, int(sampleRate*0.05))
	errorCue = append(append(append([]int16{}, buzz...), gap...), buzz...)
}

func Init() {
	synthOnce.Do(synth)
}

func PlayStart() { playCue(&startCue) }
func PlayEnd()   { playCue(&endCue) }
func PlayError() { playCue(&errorCue) }

func playCue(cue *[]int16) {
	if disabled {
		return
	}
	synthOnce.Do(synth)
	go play(*cue)
}
