package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"zsembells/pkg/audio"
	"zsembells/pkg/config"
	"zsembells/pkg/gpio"
	"zsembells/pkg/model"
	"zsembells/pkg/request"

	"github.com/spf13/afero"
)

const (
	NameScheduleSite = "Schedule site"
	NameTimeAPI      = "Time API"
	NameSounds       = "Bell sounds"
	NameGPIO         = "GPIO sysfs"
)

// Fetcher performs HTTP GETs.
type Fetcher interface {
	Fetch(ctx context.Context, u string) (*request.Response, error)
}

// Reachable checks that url answers with 200 OK.
func Reachable(name, url string, f Fetcher) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) error {
			resp, err := f.Fetch(ctx, url)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
			}
			return nil
		},
	}
}

// SoundsPresent checks that the sound of every bell kind can be decoded.
func SoundsPresent(cfg *config.AudioConfig) Probe {
	return Probe{
		Name:     NameSounds,
		Critical: true,
		Check: func(_ context.Context) error {
			var errs []error
			for _, kind := range []model.BellKind{model.BellWork, model.BellBreak} {
				path := audio.SoundFor(cfg, kind)
				if path == "" {
					errs = append(errs, fmt.Errorf("no %s sound configured", kind))
					continue
				}
				if _, err := audio.Duration(path); err != nil {
					errs = append(errs, fmt.Errorf("%s sound: %w", kind, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// GPIOPresent checks that the sysfs GPIO interface exists.
func GPIOPresent(fs afero.Fs, root string) Probe {
	return Probe{
		Name: NameGPIO,
		Check: func(_ context.Context) error {
			if !gpio.Present(fs, root) {
				return fmt.Errorf("%s/export not found", root)
			}
			return nil
		},
	}
}

// Startup returns the checks that apply to cfg.
func Startup(cfg *config.Config, f Fetcher, fs afero.Fs) []Probe {
	var probes []Probe
	if cfg.Schedule.SyncEnabled {
		probes = append(probes, Reachable(NameScheduleSite, cfg.Schedule.MainSite, f))
	}
	if cfg.Clock.SyncEnabled {
		probes = append(probes, Reachable(NameTimeAPI, cfg.Clock.TimeAPIURL, f))
	}
	if cfg.Audio.Enabled {
		probes = append(probes, SoundsPresent(&cfg.Audio))
	}
	if cfg.GPIO.Enabled {
		probes = append(probes, GPIOPresent(fs, cfg.GPIO.SysfsRoot))
	}
	return probes
}
