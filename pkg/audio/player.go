// Package audio plays bell sounds.
package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"zsembells/pkg/config"
	"zsembells/pkg/model"
)

// Player plays a single sound file.
type Player interface {
	// Play blocks until the sound finished, the maximum sound duration elapsed or ctx is done.
	// Reaching the maximum duration is not an error.
	// volume is a linear level from 0.0 to 1.0; backends without mixer control ignore it.
	Play(ctx context.Context, path string, volume float64) error
}

// New creates the player for the configured backend.
func New(cfg *config.AudioConfig) (Player, error) {
	switch cfg.Backend {
	case "aplay":
		return NewAplay(cfg), nil
	case "beep":
		return NewBeep(cfg), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.Backend)
	}
}

// SoundFor returns the sound file path for a bell kind.
func SoundFor(cfg *config.AudioConfig, kind model.BellKind) string {
	name := cfg.Sounds.Work
	if kind == model.BellBreak {
		name = cfg.Sounds.Break
	}
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.SoundsDir, name)
}
