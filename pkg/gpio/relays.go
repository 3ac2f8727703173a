package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zsembells/pkg/config"
	"zsembells/pkg/model"

	"github.com/spf13/afero"
)

// ErrNotReady is returned when relays are driven before a successful Setup.
var ErrNotReady = errors.New("relays not set up")

// Opener opens an output line.
type Opener func(n int) (Pin, error)

// Relays switches the neutral, work and break relay outputs.
type Relays struct {
	cfg  *config.GPIOConfig
	open Opener

	mu    sync.Mutex
	pins  map[string]Pin
	ready bool
}

// NewRelays creates relays backed by the sysfs interface at cfg.SysfsRoot.
func NewRelays(cfg *config.GPIOConfig, fs afero.Fs) *Relays {
	return NewRelaysWithOpener(cfg, func(n int) (Pin, error) {
		return OpenSysfs(fs, cfg.SysfsRoot, n, cfg.InvertRelay)
	})
}

// NewRelaysWithOpener creates relays using a custom line driver.
func NewRelaysWithOpener(cfg *config.GPIOConfig, open Opener) *Relays {
	return &Relays{cfg: cfg, open: open}
}

// Setup configures all outputs and drives them off.
// It returns false when GPIO is disabled or any output could not be configured.
func (r *Relays) Setup() bool {
	if !r.cfg.Enabled {
		slog.Warn("GPIOs are disabled")
		return false
	}
	o := r.cfg.Outputs
	if o.Neutral <= 0 || o.Work <= 0 || o.Break <= 0 {
		slog.Warn("GPIO config is empty")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pins := make(map[string]Pin, 3)
	for _, out := range []struct {
		name string
		n    int
	}{
		{"neutral", o.Neutral},
		{string(model.BellWork), o.Work},
		{string(model.BellBreak), o.Break},
	} {
		pin, err := r.open(out.n)
		if err == nil {
			pins[out.name] = pin
			err = pin.Set(false)
		}
		if err != nil {
			slog.Error("Failed to set up GPIO output", "pin", out.n, "output", out.name, "error", err)
			closeAll(pins)
			return false
		}
		slog.Info("Setting GPIO as OUTPUT", "pin", out.n, "output", out.name)
	}

	r.pins = pins
	r.ready = true
	return true
}

// Ready reports whether Setup succeeded.
func (r *Relays) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Activate switches on the relay for kind together with the neutral relay.
func (r *Relays) Activate(kind model.BellKind) error {
	return r.drive(kind, true)
}

// Release switches off the relay for kind and the neutral relay.
func (r *Relays) Release(kind model.BellKind) error {
	return r.drive(kind, false)
}

func (r *Relays) drive(kind model.BellKind, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		return ErrNotReady
	}
	pin, ok := r.pins[string(kind)]
	if !ok {
		return fmt.Errorf("no relay for bell kind %q", kind)
	}

	state := "OFF"
	if on {
		state = "ON"
	}
	slog.Info("GPIO "+state, "pin", pin.Number(), "kind", kind)

	return errors.Join(pin.Set(on), r.pins["neutral"].Set(on))
}

// Cleanup switches everything off and releases the lines.
func (r *Relays) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		return
	}
	for _, pin := range r.pins {
		if err := pin.Set(false); err != nil {
			slog.Warn("Failed to switch off GPIO", "pin", pin.Number(), "error", err)
		}
	}
	closeAll(r.pins)
	r.pins = nil
	r.ready = false
}

func closeAll(pins map[string]Pin) {
	for _, pin := range pins {
		if err := pin.Close(); err != nil {
			slog.Warn("Failed to release GPIO", "pin", pin.Number(), "error", err)
		}
	}
}
