package audio

import (
	"github.com/gopxl/beep"
)

// voice wraps one playing clip with a linear gain and an optional fade-out envelope
// Fields are touched by the output goroutine; mutate only while holding the bank's output lock
type voice struct {
	src  beep.Streamer
	gain float64

	fadeTotal int // samples in the fade envelope, 0 = not fading
	fadeLeft  int
	stopped   bool
}

func newVoice(src beep.Streamer, gain float64) *voice {
	return &voice{src: src, gain: gain}
}

// Stream implements beep.Streamer
func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.stopped {
		return 0, false
	}

	n, ok := v.src.Stream(samples)
	for i := 0; i < n; i++ {
		g := v.gain
		if v.fadeTotal > 0 {
			if v.fadeLeft <= 0 {
				v.stopped = true
				return i, true
			}
			g *= float64(v.fadeLeft) / float64(v.fadeTotal)
			v.fadeLeft--
		}
		samples[i][0] *= g
		samples[i][1] *= g
	}
	if !ok {
		v.stopped = true
	}
	return n, ok
}

// Err implements beep.Streamer
func (v *voice) Err() error {
	return v.src.Err()
}

// fadeOut ramps the gain to zero over n samples, then ends the voice
func (v *voice) fadeOut(n int) {
	if v.stopped || v.fadeTotal > 0 {
		return
	}
	if n <= 0 {
		v.stopped = true
		return
	}
	v.fadeTotal = n
	v.fadeLeft = n
}

// stop ends the voice on the next buffer
func (v *voice) stop() {
	v.stopped = true
}

func (v *voice) live() bool {
	return !v.stopped
}
