// Package gpio drives the bell relays through the Linux sysfs GPIO interface.
package gpio

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Pin is a single output line.
type Pin interface {
	Number() int
	// Set drives the line. on is the logical state; inversion is applied by the driver.
	Set(on bool) error
	// Close releases the line.
	Close() error
}

// SysfsPin is an output line exported under /sys/class/gpio.
type SysfsPin struct {
	fs     afero.Fs
	root   string
	n      int
	invert bool
}

const (
	exportRetries = 10
	exportDelay   = 20 * time.Millisecond
)

// OpenSysfs exports line n if needed and configures it as an output.
func OpenSysfs(fs afero.Fs, root string, n int, invert bool) (*SysfsPin, error) {
	p := &SysfsPin{fs: fs, root: root, n: n, invert: invert}

	exported, err := afero.DirExists(fs, p.dir())
	if err != nil {
		return nil, err
	}
	if !exported {
		if err := p.write(path.Join(root, "export"), strconv.Itoa(n)); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", n, err)
		}
	}

	// The direction file shows up asynchronously after export.
	for i := 0; ; i++ {
		err = p.write(path.Join(p.dir(), "direction"), "out")
		if err == nil || i >= exportRetries {
			break
		}
		time.Sleep(exportDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("set gpio %d direction: %w", n, err)
	}
	return p, nil
}

func (p *SysfsPin) Number() int { return p.n }

func (p *SysfsPin) Set(on bool) error {
	level := "0"
	if on != p.invert {
		level = "1"
	}
	if err := p.write(path.Join(p.dir(), "value"), level); err != nil {
		return fmt.Errorf("set gpio %d: %w", p.n, err)
	}
	return nil
}

// Value reads back the logical state of the line.
func (p *SysfsPin) Value() (bool, error) {
	data, err := afero.ReadFile(p.fs, path.Join(p.dir(), "value"))
	if err != nil {
		return false, err
	}
	high := strings.TrimSpace(string(data)) == "1"
	return high != p.invert, nil
}

func (p *SysfsPin) Close() error {
	return p.write(path.Join(p.root, "unexport"), strconv.Itoa(p.n))
}

func (p *SysfsPin) dir() string {
	return path.Join(p.root, "gpio"+strconv.Itoa(p.n))
}

func (p *SysfsPin) write(name, value string) error {
	return afero.WriteFile(p.fs, name, []byte(value), 0o644)
}

// Present reports whether the sysfs GPIO interface is available under root.
func Present(fs afero.Fs, root string) bool {
	ok, err := afero.Exists(fs, path.Join(root, "export"))
	return err == nil && ok
}
