package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Launcher LauncherConfig `yaml:"launcher"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Request  RequestConfig  `yaml:"request"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Clock    ClockConfig    `yaml:"clock"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Audio    AudioConfig    `yaml:"audio"`
	Bell     BellConfig     `yaml:"bell"`
	Server   ServerConfig   `yaml:"server"`
}

// LauncherConfig holds settings for the command line launcher.
type LauncherConfig struct {
	// Dialog is the path of the dialog-rendering utility handed to the runner.
	Dialog string `yaml:"dialog"`
	// ExternalCommand, when set, replaces the built-in runner with an external program.
	// The language code is appended as the last argument.
	ExternalCommand []string `yaml:"external_command"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
	Rings  LogSettings `yaml:"rings"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path          string   `yaml:"path"`
	RingRetention Duration `yaml:"ring_retention"` // ring events older than this are pruned at startup
	KeepSchedules int      `yaml:"keep_schedules"` // schedule snapshots kept
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// ScheduleConfig holds settings for the timetable scraper.
type ScheduleConfig struct {
	SyncEnabled    bool   `yaml:"sync_enabled"`
	MainSite       string `yaml:"main_site"`
	URL            string `yaml:"url"`
	BranchEndpoint string `yaml:"branch_endpoint"` // printf pattern, %d is the branch index
	MaxBadBranches int    `yaml:"max_bad_branches"`
	TableClass     string `yaml:"table_class"`
	HourClass      string `yaml:"hour_class"`
	MinRows        int    `yaml:"min_rows"`
}

// ClockConfig holds settings for the virtual clock.
type ClockConfig struct {
	SyncEnabled      bool        `yaml:"sync_enabled"`
	TimeAPIURL       string      `yaml:"time_api_url"`
	SyncAfterRing    bool        `yaml:"sync_after_ring"`
	SyncTimestamps   []TimeOfDay `yaml:"sync_timestamps"` // schedule re-sync times
	AnnounceInterval int         `yaml:"announce_interval"` // ticks between status tables
	VerboseDebug     bool        `yaml:"verbose_debug"`     // status table on every tick
}

// GPIOConfig holds settings for the relay outputs.
type GPIOConfig struct {
	Enabled     bool        `yaml:"enabled"`
	SysfsRoot   string      `yaml:"sysfs_root"`
	InvertRelay bool        `yaml:"invert_relay"`
	Outputs     GPIOOutputs `yaml:"outputs"`
}

// GPIOOutputs maps bell kinds to GPIO line numbers.
type GPIOOutputs struct {
	Neutral int `yaml:"neutral"`
	Work    int `yaml:"work"`
	Break   int `yaml:"break"`
}

// AudioConfig holds settings for bell sound playback.
type AudioConfig struct {
	Enabled          bool       `yaml:"enabled"`
	Backend          string     `yaml:"backend"` // "beep", "aplay"
	Device           string     `yaml:"device"`
	SoundsDir        string     `yaml:"sounds_dir"`
	MaxSoundDuration Duration   `yaml:"max_sound_duration"`
	Volume           float64    `yaml:"volume"`
	Sounds           BellSounds `yaml:"sounds"`
}

// BellSounds holds the sound file per bell kind, relative to SoundsDir.
type BellSounds struct {
	Work  string `yaml:"work"`
	Break string `yaml:"break"`
}

// BellConfig holds settings for ringing.
type BellConfig struct {
	// MaxDuration is how long relays stay on when sounds are disabled.
	MaxDuration Duration `yaml:"max_duration"`
	QueueSize   int      `yaml:"queue_size"`
}

// ServerConfig holds status API settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Launcher: LauncherConfig{
			Dialog: "/usr/bin/dialog",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/zsembells.log",
				Level: "INFO",
			},
			Rings: LogSettings{
				Path:  "./logs/rings.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:          "./data/zsembells.db",
			RingRetention: Duration(90 * 24 * time.Hour),
			KeepSchedules: 20,
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(5 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
		},
		Schedule: ScheduleConfig{
			SyncEnabled:    true,
			MainSite:       "https://zsem.edu.pl",
			URL:            "https://zsem.edu.pl/plany/plany",
			BranchEndpoint: "/o%d.html",
			MaxBadBranches: 3,
			TableClass:     "tabela",
			HourClass:      "g",
			MinRows:        2,
		},
		Clock: ClockConfig{
			SyncEnabled:      true,
			TimeAPIURL:       "http://worldtimeapi.org/api/ip",
			SyncAfterRing:    false,
			SyncTimestamps:   []TimeOfDay{MustParseTimeOfDay("06:00"), MustParseTimeOfDay("12:00")},
			AnnounceInterval: 60,
		},
		GPIO: GPIOConfig{
			Enabled:     false,
			SysfsRoot:   "/sys/class/gpio",
			InvertRelay: false,
			Outputs: GPIOOutputs{
				Neutral: 73,
				Work:    70,
				Break:   69,
			},
		},
		Audio: AudioConfig{
			Enabled:          true,
			Backend:          "aplay",
			Device:           "hw:0,0",
			SoundsDir:        "./sounds",
			MaxSoundDuration: Duration(5 * time.Second),
			Volume:           1.0,
			Sounds: BellSounds{
				Work:  "work.wav",
				Break: "break.wav",
			},
		},
		Bell: BellConfig{
			MaxDuration: Duration(5 * time.Second),
			QueueSize:   4,
		},
		Server: ServerConfig{
			Enabled: false,
			Address: "localhost:8099",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Existing files are merged over the defaults and never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills settings from the environment. Values are never saved back to disk.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ZSEMBELLS_DIALOG"); v != "" {
		cfg.Launcher.Dialog = v
	}
	if v := os.Getenv("ZSEMBELLS_AUDIO_DEVICE"); v != "" {
		cfg.Audio.Device = v
	}
}

var branchPattern = regexp.MustCompile(`%d`)

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "beep", "aplay":
	default:
		return fmt.Errorf("invalid audio backend '%s': must be 'beep' or 'aplay'", c.Audio.Backend)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("invalid audio volume %.2f: must be within [0, 1]", c.Audio.Volume)
	}
	if c.GPIO.Enabled {
		o := c.GPIO.Outputs
		if o.Neutral <= 0 || o.Work <= 0 || o.Break <= 0 {
			return fmt.Errorf("gpio outputs must be positive line numbers (neutral=%d work=%d break=%d)", o.Neutral, o.Work, o.Break)
		}
	}
	if c.Schedule.SyncEnabled && !branchPattern.MatchString(c.Schedule.BranchEndpoint) {
		return fmt.Errorf("schedule branch_endpoint '%s' must contain %%d", c.Schedule.BranchEndpoint)
	}
	if c.Schedule.MaxBadBranches < 1 {
		return fmt.Errorf("schedule max_bad_branches must be at least 1")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# zsembells configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Time of day: HH:MM or HH:MM:SS

`)
	data = append(header, data...)

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: beep, aplay\n${1}backend:"))

	reInvert := regexp.MustCompile(`(?m)^(\s+)invert_relay:`)
	data = reInvert.ReplaceAll(data, []byte("${1}# true for active-low relay boards\n${1}invert_relay:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
