package peer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"

	"github.com/lydakis/clop/internal/paths"
)

// Launcher starts the peer installed at path without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, path string) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, path string) error

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, path string) error { return f(ctx, path) }

var (
	execCommandFn       = exec.Command
	acquireLaunchLockFn = acquireLaunchLock
)

// OpenLauncher starts the peer as a detached process. Launches from
// different processes are serialized through a file lock.
type OpenLauncher struct {
	LockPath string
}

// Launch implements Launcher.
func (l OpenLauncher) Launch(ctx context.Context, path string) error {
	lockPath := l.LockPath
	if lockPath == "" {
		lockPath = paths.LaunchLockPath()
	}
	release, err := acquireLaunchLockFn(ctx, lockPath)
	if err != nil {
		return fmt.Errorf("acquiring launch lock: %w", err)
	}
	defer release() //nolint:errcheck

	cmd, cleanup, err := newLaunchCommand(path)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", path, err)
	}

	// Detach: don't wait for the peer process
	go cmd.Wait() //nolint: errcheck
	return nil
}

func acquireLaunchLock(ctx context.Context, path string) (func() error, error) {
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("locking %s: %w", path, ctx.Err())
	}
	return fl.Unlock, nil
}

// launchArgv returns the command that opens the install at path.
func launchArgv(goos, path string) []string {
	if goos == "darwin" {
		return []string{"open", path}
	}
	return []string{path}
}

func newLaunchCommand(path string) (*exec.Cmd, func(), error) {
	argv := launchArgv(runtime.GOOS, path)
	cmd := execCommandFn(argv[0], argv[1:]...)
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	return cmd, func() {
		_ = devNull.Close()
	}, nil
}
