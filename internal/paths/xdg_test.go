package paths

import (
	"path/filepath"
	"testing"
)

func TestRuntimeDirUsesXDGStateHomeFallback(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("XDG_STATE_HOME", "/tmp/state-home")
	t.Setenv("HOME", "/tmp/home")

	got := RuntimeDir()
	want := filepath.Join("/tmp/state-home", "clop")
	if got != want {
		t.Fatalf("RuntimeDir() = %q, want %q", got, want)
	}
}

func TestRuntimeDirFallsBackToHomeLocalState(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/tmp/home")

	got := RuntimeDir()
	want := filepath.Join("/tmp/home", ".local", "state", "clop")
	if got != want {
		t.Fatalf("RuntimeDir() = %q, want %q", got, want)
	}
}

func TestRuntimeDirPrefersXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/xdg-runtime")
	t.Setenv("XDG_STATE_HOME", "/tmp/state-home")

	got := RuntimeDir()
	want := filepath.Join("/tmp/xdg-runtime", "clop")
	if got != want {
		t.Fatalf("RuntimeDir() = %q, want %q", got, want)
	}
}

func TestConfigFileUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/config-home")

	got := ConfigFile()
	want := filepath.Join("/tmp/config-home", "clop", "config.toml")
	if got != want {
		t.Fatalf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestChannelSocketAppendsSuffix(t *testing.T) {
	got := ChannelSocket("/run/clop", "com.lowtechguys.Clop.optimisationService")
	want := "/run/clop/com.lowtechguys.Clop.optimisationService.sock"
	if got != want {
		t.Fatalf("ChannelSocket() = %q, want %q", got, want)
	}
}

func TestLaunchLockPathLivesInRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/xdg-runtime")

	got := LaunchLockPath()
	want := filepath.Join("/tmp/xdg-runtime", "clop", "launch.lock")
	if got != want {
		t.Fatalf("LaunchLockPath() = %q, want %q", got, want)
	}
}

func TestCacheDirUsesXDGCacheHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")

	if got, want := CacheDir(), filepath.Join("/tmp/cache-home", "clop"); got != want {
		t.Fatalf("CacheDir() = %q, want %q", got, want)
	}
}
