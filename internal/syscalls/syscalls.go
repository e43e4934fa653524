// Package syscalls holds the real OS-backed implementations of the provider
// interfaces consumed throughout the application.
package syscalls

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS implements the os-level provider interfaces.
type OS struct{}

func (*OS) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

func (*OS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (*OS) Readlink(name string) (string, error) {
	return os.Readlink(name)
}

func (*OS) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (*OS) Remove(name string) error {
	return os.Remove(name)
}

func (*OS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (*OS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Unix implements the unix-level provider interfaces.
type Unix struct{}

func (*Unix) Statfs(path string, buf *unix.Statfs_t) error {
	return unix.Statfs(path, buf)
}

func (*Unix) Getxattr(path string, attr string, dest []byte) (int, error) {
	return unix.Getxattr(path, attr, dest)
}
