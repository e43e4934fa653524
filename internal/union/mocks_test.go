package union_test

import (
	"context"
	"path/filepath"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/runner"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
	"github.com/stretchr/testify/mock"
	"golang.org/x/sys/unix"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, stdin string, argv ...string) (runner.Result, error) {
	args := m.Called(ctx, stdin, argv)

	return args.Get(0).(runner.Result), args.Error(1)
}

type mockUnix struct {
	mock.Mock
}

func (m *mockUnix) Statfs(path string, buf *unix.Statfs_t) error {
	args := m.Called(path, buf)

	return args.Error(0)
}

func (m *mockUnix) Getxattr(path string, attr string, dest []byte) (int, error) {
	args := m.Called(path, attr, dest)

	return args.Int(0), args.Error(1)
}

type mockOS struct {
	mock.Mock
}

func (m *mockOS) ReadFile(name string) ([]byte, error) {
	args := m.Called(name)

	if raw := args.Get(0); raw != nil {
		return raw.([]byte), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) MountpointInUse(mountpoint string) (bool, error) {
	args := m.Called(mountpoint)

	return args.Bool(0), args.Error(1)
}

// stubPool is a fixed-value member pool for exercising the union layer.
type stubPool struct {
	name       string
	mode       config.BranchMode
	mounted    bool
	mountpoint string
	capacity   zfs.Capacity
	unmountErr error
	unmounted  bool
}

func (s *stubPool) Name() string            { return s.name }
func (s *stubPool) QualifiedName() string   { return s.name + "/data" }
func (s *stubPool) Mode() config.BranchMode { return s.mode }
func (s *stubPool) ReadOnly() bool          { return s.mode == config.ModeReadOnly }

func (s *stubPool) MountedLive(ctx context.Context) (bool, error) {
	return s.mounted, nil
}

func (s *stubPool) Mountpoint(ctx context.Context) (string, error) {
	return s.mountpoint, nil
}

func (s *stubPool) Capacity(ctx context.Context) (zfs.Capacity, error) {
	return s.capacity, nil
}

func (s *stubPool) Unmount(ctx context.Context) error {
	if s.unmountErr != nil {
		return s.unmountErr
	}
	s.unmounted = true

	return nil
}

func expectBranches(mockUnixOps *mockUnix, mountpoint string, branches string) {
	controlPath := filepath.Join(mountpoint, union.ControlFile)

	mockUnixOps.On("Getxattr", controlPath, union.BranchesXattr, mock.Anything).
		Run(func(args mock.Arguments) {
			copy(args.Get(2).([]byte), branches)
		}).
		Return(len(branches), nil)
}

func expectNotMounted(mockUnixOps *mockUnix, mountpoint string) {
	controlPath := filepath.Join(mountpoint, union.ControlFile)

	mockUnixOps.On("Getxattr", controlPath, union.BranchesXattr, mock.Anything).
		Return(0, unix.ENODATA)
}
