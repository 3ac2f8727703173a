// Package probe runs startup checks before the bell service starts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zsembells/pkg/logging"
)

// DefaultTimeout bounds a single check when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

// CheckFunc is a function that performs a health check.
// It returns nil if the check passes, or an error if it fails.
type CheckFunc func(ctx context.Context) error

// Probe represents a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // If true, a failure here should prevent startup.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes a list of probes and returns their results.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return results
}

// AnalyzeResults logs a summary table and returns a combined error if critical probes failed.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	logging.Separator("Startup Checks")

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "PASS"
		detail := ""
		if r.Error != nil {
			status = "FAIL"
			if !r.Probe.Critical {
				status = "WARN"
			}
			detail = r.Error.Error()
		}
		rows = append(rows, []string{status, r.Probe.Name, r.Duration.Round(time.Millisecond).String(), detail})

		if r.Error == nil {
			continue
		}
		if r.Probe.Critical {
			slog.Error("Startup check failed", "check", r.Probe.Name, "error", r.Error)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			slog.Warn("Startup check failed", "check", r.Probe.Name, "error", r.Error)
		}
	}
	logging.LogTable([]string{"Status", "Check", "Took", "Detail"}, rows)

	if len(criticalErrors) > 0 {
		return errors.Join(criticalErrors...)
	}

	return nil
}

// Failed reports whether the named probe failed.
func Failed(results []Result, name string) bool {
	for _, r := range results {
		if r.Probe.Name == name {
			return r.Error != nil
		}
	}
	return false
}
