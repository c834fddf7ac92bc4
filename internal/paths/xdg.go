package paths

import (
	"os"
	"path/filepath"
)

const appName = "clop"

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, appName)
	}
	return filepath.Join(homeDir(), fallbackSuffix, appName)
}

// ConfigDir returns the clop config directory ($XDG_CONFIG_HOME/clop).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the clop state directory ($XDG_STATE_HOME/clop).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// CacheDir returns the clop cache directory ($XDG_CACHE_HOME/clop).
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// RuntimeDir returns the directory holding channel sockets and locks.
// Falls back to $XDG_STATE_HOME/clop if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, appName)
	}
	return StateDir()
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ChannelDir returns the default directory where peers publish channel sockets.
func ChannelDir() string {
	return RuntimeDir()
}

// ChannelSocket returns the socket path for the named channel inside dir.
func ChannelSocket(dir, name string) string {
	return filepath.Join(dir, name+".sock")
}

// LaunchLockPath returns the path to the file lock serializing peer launches.
func LaunchLockPath() string {
	return filepath.Join(RuntimeDir(), "launch.lock")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
