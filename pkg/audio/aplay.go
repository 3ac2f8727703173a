package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"zsembells/pkg/config"
)

// AplayPlayer plays sounds through the ALSA aplay utility.
type AplayPlayer struct {
	// Binary is the aplay executable, looked up in PATH when not absolute.
	Binary   string
	device   string
	maxSound time.Duration
}

// NewAplay creates an AplayPlayer for the configured device.
func NewAplay(cfg *config.AudioConfig) *AplayPlayer {
	return &AplayPlayer{
		Binary:   "aplay",
		device:   cfg.Device,
		maxSound: time.Duration(cfg.MaxSoundDuration),
	}
}

func (p *AplayPlayer) args(path string) []string {
	var args []string
	if p.device != "" {
		args = append(args, "-D", p.device)
	}
	return append(args, path)
}

// Play runs aplay and kills it when the maximum sound duration elapses.
func (p *AplayPlayer) Play(ctx context.Context, path string, _ float64) error {
	playCtx := ctx
	if p.maxSound > 0 {
		var cancel context.CancelFunc
		playCtx, cancel = context.WithTimeout(ctx, p.maxSound)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(playCtx, p.Binary, p.args(path)...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	slog.Debug("Playing sound", "backend", "aplay", "device", p.device, "path", path)
	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(playCtx.Err(), context.DeadlineExceeded) {
		slog.Debug("Sound cut at max duration", "path", path, "max", p.maxSound)
		return nil
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("aplay %s: %w: %s", path, err, msg)
	}
	return fmt.Errorf("aplay %s: %w", path, err)
}
