// Package secrets supplies decryption passphrases, retrying previously
// accepted secrets across pools so that one secret shared by several pools
// is entered only once per invocation.
package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mlohr/poolstack/internal/zfs"
)

// Unlockable is what a pool must offer to be unlocked by a [Source].
// LoadKey must succeed without consuming the passphrase when the key is
// already loaded.
type Unlockable interface {
	QualifiedName() string
	KeyStatus(ctx context.Context) (string, error)
	LoadKey(ctx context.Context, passphrase string) error
}

type promptProvider interface {
	IsTerminal(fd int) bool
	ReadPassword(fd int) ([]byte, error)
}

// Source maintains the ordered list of secrets accepted during this
// invocation. No secret is ever persisted beyond it.
type Source struct {
	known []string

	stdin   *bufio.Reader
	stdinFD int
	prompt  promptProvider
	out     io.Writer
}

// NewSource returns a [Source] reading non-interactive secrets from stdin
// and interactive ones through the prompt provider.
func NewSource(stdin io.Reader, stdinFD int, prompt promptProvider, out io.Writer) *Source {
	return &Source{
		stdin:   bufio.NewReader(stdin),
		stdinFD: stdinFD,
		prompt:  prompt,
		out:     out,
	}
}

// Unlock loads a key into the given pool. A pool whose key is already
// loaded needs no secret at all. Otherwise every known secret is tried in
// order first; on a miss, exactly one new secret is obtained, appended to
// the known list and the same pool retried. The acquisition loop is
// unbounded by design; callers wanting a bound must add their own.
func (s *Source) Unlock(ctx context.Context, pool Unlockable) error {
	status, err := pool.KeyStatus(ctx)
	if err != nil {
		return fmt.Errorf("(secrets) %w", err)
	}

	if status == zfs.KeyStatusAvailable {
		slog.Debug("Key already loaded, no secret needed.", "pool", pool.QualifiedName())

		if err := pool.LoadKey(ctx, ""); err != nil {
			return fmt.Errorf("(secrets) %w", err)
		}

		return nil
	}

	for _, secret := range s.known {
		err := pool.LoadKey(ctx, secret)
		if err == nil {
			return nil
		}
		if !errors.Is(err, zfs.ErrKeyRejected) {
			return fmt.Errorf("(secrets) %w", err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("(secrets) %w", err)
		}

		secret, err := s.acquire(pool.QualifiedName())
		if err != nil {
			return fmt.Errorf("(secrets) %w", err)
		}

		s.known = append(s.known, secret)

		err = pool.LoadKey(ctx, secret)
		if err == nil {
			return nil
		}
		if !errors.Is(err, zfs.ErrKeyRejected) {
			return fmt.Errorf("(secrets) %w", err)
		}

		slog.Warn("Secret was rejected, asking again.", "pool", pool.QualifiedName())
	}
}

// acquire obtains one new secret: non-interactively from a ready (piped)
// input stream when stdin is not a terminal, otherwise via an interactive
// hidden prompt.
func (s *Source) acquire(poolName string) (string, error) {
	if !s.prompt.IsTerminal(s.stdinFD) {
		line, err := s.stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read piped secret: %w", err)
		}

		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprintf(s.out, "Passphrase for %s: ", poolName)

	secret, err := s.prompt.ReadPassword(s.stdinFD)
	fmt.Fprintln(s.out)
	if err != nil {
		return "", fmt.Errorf("failed to read prompted secret: %w", err)
	}

	return string(secret), nil
}

// Known returns how many secrets have been accepted so far.
func (s *Source) Known() int {
	return len(s.known)
}
