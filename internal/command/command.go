// Package command runs external tools (docker, df, lsblk, smartctl) with a
// deadline and classifies how they failed.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound means the executable is not installed or not on PATH.
	ErrNotFound = errors.New("command not found")
	// ErrTimeout means the command did not finish before its deadline.
	ErrTimeout = errors.New("command timed out")
)

// ExitError is returned when a command ran but exited non-zero. The stdout it
// produced is still handed back by Run, since tools like smartctl encode
// warnings in the exit status while printing a usable report.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Runner executes a command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Local runs commands on this host through os/exec.
type Local struct {
	// Timeout bounds every invocation that arrives without a shorter deadline.
	Timeout time.Duration
}

// NewLocal returns a Local runner with the given default timeout.
func NewLocal(timeout time.Duration) *Local {
	return &Local{Timeout: timeout}
}

// Run executes name with args. On a non-zero exit it returns the captured
// stdout together with an *ExitError.
func (l *Local) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children of a killed process may hold the output pipes open
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), &ExitError{
			Name:   name,
			Code:   exitErr.ExitCode(),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("running %s: %w", name, err)
}
