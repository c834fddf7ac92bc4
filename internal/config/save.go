package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lydakis/clop/internal/paths"
)

// ErrExists is returned by Init when a config file is already present.
var ErrExists = errors.New("config file already exists")

const fileHeader = `# clop configuration.
# Durations use Go syntax ("500ms", "10s", "10m"). Strings may reference
# environment variables as ${NAME}.

`

// Init writes the default configuration to the default path unless a file
// is already there.
func Init() (string, error) {
	path := paths.ConfigFile()
	return path, InitAt(path, false)
}

// InitAt writes the default configuration to path. Without overwrite an
// existing file is left alone and ErrExists returned.
func InitAt(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	return SaveTo(path, Default())
}

// SaveTo writes cfg to path atomically.
func SaveTo(path string, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}

	payload := bytes.NewBufferString(fileHeader)
	if err := toml.NewEncoder(payload).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return writeAtomic(path, payload.Bytes())
}

// writeAtomic replaces path with data through a synced temp file in the
// same directory.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config.toml.tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("setting temp config permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}
