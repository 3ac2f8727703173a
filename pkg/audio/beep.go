package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"zsembells/pkg/config"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	targetSampleRate = beep.SampleRate(48000)
	fadeOutDuration  = 150 * time.Millisecond
)

// BeepPlayer plays sounds in-process through the default output device.
type BeepPlayer struct {
	mu                 sync.Mutex
	speakerInitialized bool
	sampleRate         beep.SampleRate
	maxSound           time.Duration
}

// NewBeep creates a BeepPlayer. The speaker is initialized on first playback.
func NewBeep(cfg *config.AudioConfig) *BeepPlayer {
	return &BeepPlayer{
		sampleRate: targetSampleRate,
		maxSound:   time.Duration(cfg.MaxSoundDuration),
	}
}

// Play decodes path and plays it at the given volume.
// Sounds longer than the maximum duration are faded out.
func (p *BeepPlayer) Play(ctx context.Context, path string, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	streamer, format, err := Decode(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := p.ensureSpeakerInitialized(); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, p.sampleRate, streamer)
	fader := NewFader(resampled, volume)
	ctrl := &beep.Ctrl{Streamer: fader}

	done := make(chan struct{})
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))
	slog.Debug("Playing sound", "backend", "beep", "path", path, "volume", volume)

	var timeout <-chan time.Time
	if p.maxSound > 0 {
		t := time.NewTimer(p.maxSound)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-done:
		return nil
	case <-timeout:
		slog.Debug("Sound cut at max duration", "path", path, "max", p.maxSound)
		p.cut(ctrl, fader, done)
		return nil
	case <-ctx.Done():
		p.cut(ctrl, fader, done)
		return ctx.Err()
	}
}

// cut fades the playing sound out and detaches it from the speaker.
func (p *BeepPlayer) cut(ctrl *beep.Ctrl, fader *Fader, done <-chan struct{}) {
	speaker.Lock()
	fader.FadeOut(p.sampleRate, fadeOutDuration)
	speaker.Unlock()

	time.Sleep(fadeOutDuration)

	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Speaker did not release sound, clearing")
		speaker.Clear()
	}
}

func (p *BeepPlayer) ensureSpeakerInitialized() error {
	if p.speakerInitialized {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10)); err != nil {
		slog.Error("Failed to initialize speaker", "error", err)
		return err
	}
	p.speakerInitialized = true
	return nil
}
