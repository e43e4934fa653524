// Package runner executes external storage commands and captures their
// complete outcome. It is the single process-execution surface of the
// application; all other packages consume it through narrow provider
// interfaces.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one external command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// OneLine returns the first line of standard output, trimmed. Most of the
// property lookups issued by this application expect exactly one value line.
func (r Result) OneLine() string {
	line, _, _ := strings.Cut(r.Stdout, "\n")

	return strings.TrimSpace(line)
}

// Exec runs commands through os/exec.
type Exec struct{}

// NewExec returns a ready [Exec].
func NewExec() *Exec {
	return &Exec{}
}

// Run executes argv synchronously, feeding stdin to the process when
// non-empty, and captures exit status and both output streams. A non-zero
// exit is not an error at this layer; callers decide whether it is a failure
// or a meaningful negative answer (e.g. "is this mounted?").
func (e *Exec) Run(ctx context.Context, stdin string, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("(runner) %w", ErrEmptyArgv)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()

			return result, nil
		}

		return result, fmt.Errorf("(runner) failed to run %q: %w", argv[0], err)
	}

	return result, nil
}

// Start launches argv detached from the calling flow. The process is left
// running outside the controlling step and is never waited on; callers may
// poll its effects later but must not block on it.
func (e *Exec) Start(argv ...string) error {
	if len(argv) == 0 {
		return fmt.Errorf("(runner) %w", ErrEmptyArgv)
	}

	cmd := exec.Command(argv[0], argv[1:]...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("(runner) failed to start %q: %w", argv[0], err)
	}

	go cmd.Wait() //nolint:errcheck

	return nil
}
