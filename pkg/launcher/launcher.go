// Package launcher validates the command line and hands the language code to a runner.
package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"zsembells/pkg/i18n"
)

// Invocation is what the runner receives from the launcher.
type Invocation struct {
	Language   string
	DialogPath string
}

// Runner runs the bell program for one invocation.
// The returned error decides the exit code; see ExitCode.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunnerFunc is an adapter to allow the use of ordinary functions as runners.
type RunnerFunc func(ctx context.Context, inv Invocation) error

func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// Setup is the prepared environment for a valid invocation.
type Setup struct {
	Runner  Runner
	Dialog  string
	Cleanup func()
}

// Launcher checks the arguments and delegates to the runner returned by Prepare.
type Launcher struct {
	Program string
	Stdout  io.Writer
	// Prepare loads configuration and builds the runner.
	// It is only called when the arguments are valid.
	Prepare func(ctx context.Context) (*Setup, error)
}

// Launch runs the program for args (without the program name) and returns the exit code.
// Anything other than exactly one argument prints the usage message and returns 1.
func (l *Launcher) Launch(ctx context.Context, args []string) int {
	if len(args) != 1 {
		l.usage()
		return 1
	}

	s, err := l.Prepare(ctx)
	if err != nil {
		slog.Error("Failed to prepare runner", "error", err)
		return 1
	}
	if s.Cleanup != nil {
		defer s.Cleanup()
	}

	inv := Invocation{Language: args[0], DialogPath: s.Dialog}
	slog.Debug("Starting runner", "language", inv.Language, "dialog", inv.DialogPath)

	err = s.Runner.Run(ctx, inv)
	code := ExitCode(err)
	if err != nil && !isExitCoder(err) {
		slog.Error("Runner failed", "error", err)
	}
	return code
}

func (l *Launcher) usage() {
	w := l.Stdout
	if w == nil {
		w = os.Stdout
	}
	i18n.Printer(i18n.Default()).Fprintf(w, i18n.MsgUsage+"\n", l.Program)
}

type exitCoder interface {
	ExitCode() int
}

func isExitCoder(err error) bool {
	var ec exitCoder
	return errors.As(err, &ec)
}

// ExitCode maps a runner error to a process exit code.
// Errors carrying an exit code (such as *exec.ExitError) keep it; other errors map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() >= 0 {
		return ec.ExitCode()
	}
	return 1
}
