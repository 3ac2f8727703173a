package config

// Persistent state keys (Registry)
const (
	KeyBellsMuted    = "bells_muted"
	KeySoundsEnabled = "sounds_enabled"
	KeyVolume        = "volume"
	KeySyncAfterRing = "sync_after_ring"
)
