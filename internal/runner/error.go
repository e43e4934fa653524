package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyArgv is an error that occurs when a command is requested without
// any argument vector.
var ErrEmptyArgv = errors.New("empty argument vector")

// CommandError describes a non-zero exit from an external tool, carrying the
// failing argument vector and the captured output for verbatim surfacing.
type CommandError struct {
	Argv   []string
	Result Result
}

// NewCommandError returns a [CommandError] for the given invocation.
func NewCommandError(argv []string, result Result) *CommandError {
	return &CommandError{
		Argv:   argv,
		Result: result,
	}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed with status %d: %s", e.Result.ExitCode, strings.Join(e.Argv, " "))

	if detail := strings.TrimSpace(e.Result.Stderr); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}

	return msg
}
