package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// children of a killed process.
const waitDelay = time.Second

// CommandResult is the captured outcome of a process.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Map returns the result in the shape actions report.
func (r CommandResult) Map() map[string]any {
	return map[string]any{
		"stdout":    r.Stdout,
		"stderr":    r.Stderr,
		"exit_code": r.ExitCode,
	}
}

// Runner executes external commands with a timeout.
type Runner struct {
	Shell   string
	Timeout time.Duration
}

// Run executes name with args in dir. A non-zero exit returns the captured
// result together with ErrCommandFailed.
func (r *Runner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (CommandResult, error) {
	if timeout <= 0 {
		timeout = r.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrCommandFailed, name, ctx.Err())
	}
	if exitErr != nil {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return res, fmt.Errorf("%w: %s exited with status %d: %s", ErrCommandFailed, name, res.ExitCode, detail)
	}
	res.ExitCode = -1
	return res, fmt.Errorf("%w: starting %s: %w", ErrCommandFailed, name, err)
}

// Sh runs command through the configured shell.
func (r *Runner) Sh(ctx context.Context, dir string, timeout time.Duration, command string) (CommandResult, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	return r.Run(ctx, dir, timeout, shell, "-c", command)
}
