package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// DialogEnv carries the dialog utility path to external runners.
const DialogEnv = "DIALOG"

// ExecRunner runs an external program with the language code appended as its last argument.
type ExecRunner struct {
	Command []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewExecRunner creates an ExecRunner inheriting the standard streams.
func NewExecRunner(command []string) *ExecRunner {
	return &ExecRunner{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run blocks until the program exits. A non-zero exit is returned as *exec.ExitError.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	if len(r.Command) == 0 {
		return errors.New("external runner command is empty")
	}

	args := append(append([]string{}, r.Command[1:]...), inv.Language)
	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	cmd.Env = append(os.Environ(), DialogEnv+"="+inv.DialogPath)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	return cmd.Run()
}
