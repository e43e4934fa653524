package zfs_test

import (
	"context"

	"github.com/mlohr/poolstack/internal/runner"
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

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) MountpointInUse(mountpoint string) (bool, error) {
	args := m.Called(mountpoint)

	return args.Bool(0), args.Error(1)
}

func okResult(stdout string) runner.Result {
	return runner.Result{ExitCode: 0, Stdout: stdout}
}

func failResult(code int) runner.Result {
	return runner.Result{ExitCode: code}
}

func expectGet(r *mockRunner, dataset string, property string, value string) {
	r.On("Run", mock.Anything, "", []string{"zfs", "get", "-Hp", "-o", "value", property, dataset}).
		Return(okResult(value+"\n"), nil)
}

func expectSet(r *mockRunner, dataset string, property string, value string) {
	r.On("Run", mock.Anything, "", []string{"zfs", "set", property + "=" + value, dataset}).
		Return(okResult(""), nil)
}
