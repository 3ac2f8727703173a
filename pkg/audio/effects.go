package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// Fader applies a gain to a streamer and ramps it linearly when the gain changes.
//
// Fader is not synchronized. When it is attached to the speaker, SetGain and
// FadeOut must be called while holding speaker.Lock().
type Fader struct {
	Streamer beep.Streamer

	// gain is the level the fader moves towards, 0.0 to 1.0.
	gain float64
	// current is the multiplier applied to the next sample.
	current float64
	// step is the per-sample change of current.
	step float64
}

// NewFader creates a Fader starting at the given gain.
func NewFader(s beep.Streamer, gain float64) *Fader {
	gain = clamp(gain)
	return &Fader{
		Streamer: s,
		gain:     gain,
		current:  gain,
	}
}

// Stream applies the current gain and moves it towards the target.
func (f *Fader) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.Streamer.Stream(samples)

	for i := 0; i < n; i++ {
		if f.current != f.gain {
			switch {
			case f.step == 0:
				f.current = f.gain
			case f.current < f.gain:
				f.current = math.Min(f.current+f.step, f.gain)
			default:
				f.current = math.Max(f.current-f.step, f.gain)
			}
		}
		samples[i][0] *= f.current
		samples[i][1] *= f.current
	}

	return n, ok
}

func (f *Fader) Err() error {
	return f.Streamer.Err()
}

// Gain returns the multiplier currently applied.
func (f *Fader) Gain() float64 {
	return f.current
}

// SetGain moves the gain to level over the given duration.
func (f *Fader) SetGain(level float64, sampleRate beep.SampleRate, d time.Duration) {
	f.gain = clamp(level)
	if d <= 0 {
		f.step = 0
		return
	}
	samples := float64(sampleRate.N(d))
	if samples < 1 {
		samples = 1
	}
	f.step = math.Abs(f.gain-f.current) / samples
}

// FadeOut ramps the gain down to silence.
func (f *Fader) FadeOut(sampleRate beep.SampleRate, d time.Duration) {
	f.SetGain(0, sampleRate, d)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
