package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingRunner struct {
	calls []Invocation
	err   error
}

func (r *recordingRunner) Run(_ context.Context, inv Invocation) error {
	r.calls = append(r.calls, inv)
	return r.err
}

type codeErr int

func (c codeErr) Error() string  { return fmt.Sprintf("exit %d", int(c)) }
func (c codeErr) ExitCode() int { return int(c) }

func TestLaunch(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		runErr      error
		wantCode    int
		wantUsage   bool
		wantRunArgs []string
	}{
		{name: "No Arguments", args: nil, wantCode: 1, wantUsage: true},
		{name: "Too Many Arguments", args: []string{"pl", "en"}, wantCode: 1, wantUsage: true},
		{name: "Language Delegated", args: []string{"pl"}, wantCode: 0, wantRunArgs: []string{"pl"}},
		{name: "Exit Code Propagated", args: []string{"en"}, runErr: codeErr(3), wantCode: 3, wantRunArgs: []string{"en"}},
		{name: "Plain Error", args: []string{"en"}, runErr: errors.New("boom"), wantCode: 1, wantRunArgs: []string{"en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			runner := &recordingRunner{err: tt.runErr}
			prepared, cleaned := false, false

			l := &Launcher{
				Program: "zsembells",
				Stdout:  &stdout,
				Prepare: func(context.Context) (*Setup, error) {
					prepared = true
					return &Setup{Runner: runner, Dialog: "/usr/bin/dialog", Cleanup: func() { cleaned = true }}, nil
				},
			}

			code := l.Launch(context.Background(), tt.args)
			assert.Equal(t, tt.wantCode, code)

			if tt.wantUsage {
				assert.Equal(t, "Usage: zsembells <language_code>\n", stdout.String())
				assert.False(t, prepared, "nothing may be prepared for an invalid invocation")
				assert.Empty(t, runner.calls)
				return
			}

			assert.Empty(t, stdout.String())
			assert.True(t, cleaned)
			if assert.Len(t, runner.calls, 1) {
				assert.Equal(t, tt.wantRunArgs[0], runner.calls[0].Language)
				assert.Equal(t, "/usr/bin/dialog", runner.calls[0].DialogPath)
			}
		})
	}
}

func TestLaunch_PrepareFails(t *testing.T) {
	l := &Launcher{
		Program: "zsembells",
		Stdout:  &bytes.Buffer{},
		Prepare: func(context.Context) (*Setup, error) {
			return nil, errors.New("invalid config")
		},
	}
	assert.Equal(t, 1, l.Launch(context.Background(), []string{"pl"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("x")))
	assert.Equal(t, 7, ExitCode(fmt.Errorf("wrapped: %w", codeErr(7))))
	assert.Equal(t, 1, ExitCode(codeErr(-1)))
}

func TestExecRunner(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	script := `printf '%s|%s|%s' "$DIALOG" "$#" "$1" > ` + out + `; exit 4`

	r := NewExecRunner([]string{"sh", "-c", script, "sh"})
	r.Stdout, r.Stderr = &bytes.Buffer{}, &bytes.Buffer{}

	l := &Launcher{
		Program: "zsembells",
		Prepare: func(context.Context) (*Setup, error) {
			return &Setup{Runner: r, Dialog: "/opt/dialog"}, nil
		},
	}

	code := l.Launch(context.Background(), []string{"pl"})
	assert.Equal(t, 4, code)

	data, err := os.ReadFile(out)
	if assert.NoError(t, err) {
		assert.Equal(t, "/opt/dialog|1|pl", strings.TrimSpace(string(data)))
	}
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	err := (&ExecRunner{}).Run(context.Background(), Invocation{Language: "pl"})
	assert.Error(t, err)
}
