package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zsembells/pkg/config"
	"zsembells/pkg/request"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}

	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFailed(t *testing.T) {
	results := []Result{
		{Probe: Probe{Name: NameTimeAPI}, Error: errors.New("timeout")},
		{Probe: Probe{Name: NameSounds}},
	}
	assert.True(t, Failed(results, NameTimeAPI))
	assert.False(t, Failed(results, NameSounds))
	assert.False(t, Failed(results, NameGPIO))
}

type fakeFetcher map[string]int

func (f fakeFetcher) Fetch(_ context.Context, u string) (*request.Response, error) {
	code, ok := f[u]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &request.Response{StatusCode: code}, nil
}

func TestReachable(t *testing.T) {
	f := fakeFetcher{"https://up": 200, "https://broken": 503}

	tests := []struct {
		url     string
		wantErr string
	}{
		{url: "https://up"},
		{url: "https://broken", wantErr: "status 503"},
		{url: "https://down", wantErr: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := Reachable("site", tt.url, f).Check(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func writeWav(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: 44100, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(441), format); err != nil {
		t.Fatal(err)
	}
}

func TestSoundsPresent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Audio
	cfg.SoundsDir = dir

	p := SoundsPresent(&cfg)
	assert.True(t, p.Critical)

	err := p.Check(context.Background())
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), "work sound") && strings.Contains(err.Error(), "break sound"))
	}

	writeWav(t, filepath.Join(dir, "work.wav"))
	writeWav(t, filepath.Join(dir, "break.wav"))
	assert.NoError(t, p.Check(context.Background()))
}

func TestStartup(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, "/sys/class/gpio/export", nil, 0o200))

	cfg := config.DefaultConfig()
	cfg.Schedule.SyncEnabled = true
	cfg.Clock.SyncEnabled = false
	cfg.Audio.Enabled = false
	cfg.GPIO.Enabled = true

	probes := Startup(cfg, fakeFetcher{cfg.Schedule.MainSite: 200}, fs)
	names := make([]string, 0, len(probes))
	for _, p := range probes {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{NameScheduleSite, NameGPIO}, names)

	results := Run(context.Background(), probes)
	assert.NoError(t, AnalyzeResults(results))
	assert.False(t, Failed(results, NameGPIO))
}
