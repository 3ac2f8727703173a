package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "zsembells.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Audio.Backend != "aplay" {
					t.Errorf("expected default audio backend 'aplay', got '%s'", cfg.Audio.Backend)
				}
				if cfg.Schedule.MaxBadBranches != 3 {
					t.Errorf("expected MaxBadBranches 3, got %d", cfg.Schedule.MaxBadBranches)
				}
				if time.Duration(cfg.Audio.MaxSoundDuration) != 5*time.Second {
					t.Errorf("expected MaxSoundDuration 5s, got %v", time.Duration(cfg.Audio.MaxSoundDuration))
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "backend: aplay") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: beep, aplay") {
					t.Error("config file missing backend options comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				data := "audio:\n  backend: beep\n  device: \"hw:1,0\"\nclock:\n  sync_timestamps: [\"07:00\", \"13:30:15\"]\n"
				if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Audio.Backend != "beep" {
					t.Errorf("expected backend 'beep', got '%s'", cfg.Audio.Backend)
				}
				if cfg.Audio.Device != "hw:1,0" {
					t.Errorf("expected device 'hw:1,0', got '%s'", cfg.Audio.Device)
				}
				if len(cfg.Clock.SyncTimestamps) != 2 || cfg.Clock.SyncTimestamps[1].String() != "13:30:15" {
					t.Errorf("unexpected sync timestamps: %v", cfg.Clock.SyncTimestamps)
				}
				// Untouched sections keep defaults
				if cfg.Schedule.TableClass != "tabela" {
					t.Errorf("expected default table class, got '%s'", cfg.Schedule.TableClass)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "table_class") {
					t.Error("existing config file must not be rewritten")
				}
			},
		},
		{
			name: "Env_Override",
			setup: func() {
				t.Setenv("ZSEMBELLS_DIALOG", "/opt/bin/whiptail")
				if err := os.WriteFile(configPath, []byte("launcher:\n  dialog: /usr/bin/dialog\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Launcher.Dialog != "/opt/bin/whiptail" {
					t.Errorf("expected dialog from env, got '%s'", cfg.Launcher.Dialog)
				}
			},
		},
		{
			name: "Invalid_Backend",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("audio:\n  backend: pulse\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_TimeOfDay",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("clock:\n  sync_timestamps: [\"25:00\"]\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "GPIO_Enabled_Missing_Pins",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("gpio:\n  enabled: true\n  outputs:\n    work: 0\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if tt.expectedError {
				return
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "zsembells.yaml")

	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// A second call leaves the file alone
	if err := os.WriteFile(path, []byte("custom: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault on existing file failed: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "custom: true\n" {
		t.Errorf("existing file was overwritten (size before %d)", info.Size())
	}
}
