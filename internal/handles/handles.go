// Package handles detects processes holding files open under a mountpoint.
// Unmount operations consult it as a safety gate; an unmount while handles
// are open is refused rather than forced.
package handles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type osProvider interface {
	ReadDir(name string) ([]os.DirEntry, error)
	Readlink(name string) (string, error)
}

// Scanner walks the process table once per query; results are never cached,
// since handle state changes under us between invocations.
type Scanner struct {
	osHandler osProvider
}

// NewScanner returns a [Scanner] reading through the given OS provider.
func NewScanner(osHandler osProvider) *Scanner {
	return &Scanner{
		osHandler: osHandler,
	}
}

// MountpointInUse reports whether any process holds an open file descriptor
// or working directory under the given mountpoint.
func (s *Scanner) MountpointInUse(mountpoint string) (bool, error) {
	holders, err := s.Holders(mountpoint)
	if err != nil {
		return false, err
	}

	return len(holders) > 0, nil
}

// Holders returns the PIDs of all processes holding paths open under the
// given mountpoint.
func (s *Scanner) Holders(mountpoint string) ([]int, error) {
	prefix := strings.TrimSuffix(mountpoint, "/") + "/"

	procEntries, err := s.osHandler.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("(handles) failed to read /proc: %w", err)
	}

	holders := []int{}

	for _, procEntry := range procEntries {
		pid, err := strconv.Atoi(procEntry.Name())
		if err != nil {
			continue
		}

		if s.pidHolds(pid, mountpoint, prefix) {
			holders = append(holders, pid)
		}
	}

	return holders, nil
}

func (s *Scanner) pidHolds(pid int, mountpoint string, prefix string) bool {
	cwdLink := fmt.Sprintf("/proc/%d/cwd", pid)
	if target, err := s.osHandler.Readlink(cwdLink); err == nil {
		if pathUnder(target, mountpoint, prefix) {
			return true
		}
	}

	fdPath := fmt.Sprintf("/proc/%d/fd", pid)
	fdEntries, err := s.osHandler.ReadDir(fdPath)
	if err != nil {
		return false
	}

	for _, fdEntry := range fdEntries {
		fdLink := fmt.Sprintf("/proc/%d/fd/%s", pid, fdEntry.Name())

		target, err := s.osHandler.Readlink(fdLink)
		if err != nil {
			continue
		}

		if pathUnder(target, mountpoint, prefix) {
			return true
		}
	}

	return false
}

func pathUnder(path string, mountpoint string, prefix string) bool {
	return path == mountpoint || strings.HasPrefix(path, prefix)
}
