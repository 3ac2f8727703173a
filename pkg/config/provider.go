package config

import (
	"context"
	"strconv"

	"zsembells/pkg/store"
)

// Provider gives access to settings that can be changed at runtime.
type Provider interface {
	BellsMuted(ctx context.Context) bool
	SoundsEnabled(ctx context.Context) bool
	Volume(ctx context.Context) float64
	SyncAfterRing(ctx context.Context) bool

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) BellsMuted(ctx context.Context) bool {
	return p.getBool(ctx, KeyBellsMuted, false)
}

func (p *UnifiedProvider) SoundsEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeySoundsEnabled, p.base.Audio.Enabled)
}

func (p *UnifiedProvider) Volume(ctx context.Context) float64 {
	v := p.getFloat64(ctx, KeyVolume, p.base.Audio.Volume)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (p *UnifiedProvider) SyncAfterRing(ctx context.Context) bool {
	return p.getBool(ctx, KeySyncAfterRing, p.base.Clock.SyncAfterRing)
}

// --- Helpers ---

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
