package secrets_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mlohr/poolstack/internal/secrets"
	"github.com/mlohr/poolstack/internal/zfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPrompt plays a terminal handing out scripted passphrases.
type stubPrompt struct {
	terminal bool
	secrets  []string
	reads    int
}

func (s *stubPrompt) IsTerminal(fd int) bool {
	return s.terminal
}

func (s *stubPrompt) ReadPassword(fd int) ([]byte, error) {
	if s.reads >= len(s.secrets) {
		return nil, fmt.Errorf("prompt exhausted after %d reads", s.reads)
	}
	secret := s.secrets[s.reads]
	s.reads++

	return []byte(secret), nil
}

// lockedPool accepts exactly one passphrase. Once loaded it reports its key
// available and accepts any further load without looking at the secret.
type lockedPool struct {
	name     string
	accepts  string
	attempts int
	loaded   bool
}

func (p *lockedPool) QualifiedName() string {
	return p.name
}

func (p *lockedPool) KeyStatus(ctx context.Context) (string, error) {
	if p.loaded {
		return zfs.KeyStatusAvailable, nil
	}

	return "unavailable", nil
}

func (p *lockedPool) LoadKey(ctx context.Context, passphrase string) error {
	if p.loaded {
		return nil
	}

	p.attempts++

	if passphrase != p.accepts {
		return fmt.Errorf("pool %s: %w", p.name, zfs.ErrKeyRejected)
	}
	p.loaded = true

	return nil
}

func TestUnlock_PromptedSecret(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: true, secrets: []string{"hunter2"}}
	out := &bytes.Buffer{}

	source := secrets.NewSource(strings.NewReader(""), 0, prompt, out)
	pool := &lockedPool{name: "tank/data", accepts: "hunter2"}

	require.NoError(t, source.Unlock(t.Context(), pool))
	assert.True(t, pool.loaded)
	assert.Equal(t, 1, source.Known())
	assert.Contains(t, out.String(), "tank/data")
}

func TestUnlock_PipedSecret(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: false}

	source := secrets.NewSource(strings.NewReader("hunter2\n"), 0, prompt, &bytes.Buffer{})
	pool := &lockedPool{name: "tank/data", accepts: "hunter2"}

	require.NoError(t, source.Unlock(t.Context(), pool))
	assert.True(t, pool.loaded)
}

func TestUnlock_PipedSecretWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: false}

	source := secrets.NewSource(strings.NewReader("hunter2"), 0, prompt, &bytes.Buffer{})
	pool := &lockedPool{name: "tank/data", accepts: "hunter2"}

	require.NoError(t, source.Unlock(t.Context(), pool))
	assert.True(t, pool.loaded)
}

// A secret accepted by one pool is retried on the next before any new prompt,
// so a shared secret is entered exactly once.
func TestUnlock_SharedSecretAcrossPools(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: true, secrets: []string{"shared"}}

	source := secrets.NewSource(strings.NewReader(""), 0, prompt, &bytes.Buffer{})

	first := &lockedPool{name: "tank/data", accepts: "shared"}
	second := &lockedPool{name: "fast/data", accepts: "shared"}

	require.NoError(t, source.Unlock(t.Context(), first))
	require.NoError(t, source.Unlock(t.Context(), second))

	assert.Equal(t, 1, prompt.reads)
	assert.Equal(t, 1, source.Known())
}

// Rejections keep asking; the accepted secret still ends up known only once
// per distinct value.
func TestUnlock_RetriesAfterRejection(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: true, secrets: []string{"wrong", "also-wrong", "right"}}

	source := secrets.NewSource(strings.NewReader(""), 0, prompt, &bytes.Buffer{})
	pool := &lockedPool{name: "tank/data", accepts: "right"}

	require.NoError(t, source.Unlock(t.Context(), pool))
	assert.Equal(t, 3, prompt.reads)
	assert.Equal(t, 3, pool.attempts)
	assert.Equal(t, 3, source.Known())
}

// Errors other than a key rejection abort immediately instead of re-asking.
func TestUnlock_NonRejectionErrorAborts(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: true, secrets: []string{"whatever"}}

	source := secrets.NewSource(strings.NewReader(""), 0, prompt, &bytes.Buffer{})

	err := source.Unlock(t.Context(), &brokenPool{})
	require.ErrorIs(t, err, assert.AnError)
}

func TestUnlock_CancelledContext(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: true, secrets: []string{"never-read"}}

	source := secrets.NewSource(strings.NewReader(""), 0, prompt, &bytes.Buffer{})
	pool := &lockedPool{name: "tank/data", accepts: "unreachable"}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := source.Unlock(ctx, pool)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, prompt.reads)
}

// A pool whose key is already loaded is unlocked without demanding any
// secret, leaving stdin and the prompt untouched.
func TestUnlock_AlreadyLoadedNeedsNoSecret(t *testing.T) {
	t.Parallel()

	prompt := &stubPrompt{terminal: false}
	stdin := strings.NewReader("whatever\n")

	source := secrets.NewSource(stdin, 0, prompt, &bytes.Buffer{})
	pool := &lockedPool{name: "tank/data", loaded: true}

	require.NoError(t, source.Unlock(t.Context(), pool))
	assert.Zero(t, source.Known())
	assert.Zero(t, pool.attempts)
	assert.Equal(t, 9, stdin.Len())
}

// Re-running mount on a healthy system means a fresh invocation with an
// empty known list and pools that are all unlocked already; no passphrase
// may be demanded then.
func TestUnlock_FreshInvocationSkipsUnlockedPools(t *testing.T) {
	t.Parallel()

	pool := &lockedPool{name: "tank/data", accepts: "hunter2"}

	first := secrets.NewSource(strings.NewReader("hunter2\n"), 0, &stubPrompt{}, &bytes.Buffer{})
	require.NoError(t, first.Unlock(t.Context(), pool))
	require.True(t, pool.loaded)

	exhausted := &stubPrompt{terminal: true}

	second := secrets.NewSource(strings.NewReader(""), 0, exhausted, &bytes.Buffer{})
	require.NoError(t, second.Unlock(t.Context(), pool))

	assert.Zero(t, second.Known())
	assert.Zero(t, exhausted.reads)
}

type brokenPool struct{}

func (p *brokenPool) QualifiedName() string {
	return "broken/data"
}

func (p *brokenPool) KeyStatus(ctx context.Context) (string, error) {
	return "unavailable", nil
}

func (p *brokenPool) LoadKey(ctx context.Context, passphrase string) error {
	return assert.AnError
}
