package secrets

import "golang.org/x/term"

// TermPrompt implements the interactive prompt provider on golang.org/x/term.
type TermPrompt struct{}

// IsTerminal reports whether fd is attached to a terminal.
func (TermPrompt) IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// ReadPassword reads one secret from fd with echo disabled.
func (TermPrompt) ReadPassword(fd int) ([]byte, error) {
	return term.ReadPassword(fd) //nolint:wrapcheck
}
