package config

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lydakis/clop/internal/peer"
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	if strings.ContainsAny(cfg.Namespace, "/ ") {
		errs = append(errs, fmt.Errorf("namespace: must not contain spaces or slashes, got %q", cfg.Namespace))
	}
	if cfg.ChannelDir != "" && !filepath.IsAbs(cfg.ChannelDir) {
		errs = append(errs, fmt.Errorf("channel_dir: must be an absolute path, got %q", cfg.ChannelDir))
	}

	for i, p := range cfg.Peer.InstallPaths {
		if !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("peer.install_paths[%d]: must be an absolute path, got %q", i, p))
		}
	}
	if len(cfg.Peer.SearchCommand) > 0 && strings.TrimSpace(cfg.Peer.SearchCommand[0]) == "" {
		errs = append(errs, errors.New("peer.search_command: first element must name a program"))
	}

	for _, d := range []struct{ key, value string }{
		{"peer.search_timeout", cfg.Peer.SearchTimeout},
		{"peer.launch_settle", cfg.Peer.LaunchSettle},
		{"peer.cache_ttl", cfg.Peer.CacheTTL},
		{"timeouts.send", cfg.Timeouts.Send},
		{"timeouts.reply", cfg.Timeouts.Reply},
		{"timeouts.ready", cfg.Timeouts.Ready},
	} {
		errs = append(errs, validateDuration(d.key, d.value)...)
	}

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateDuration(key, value string) []error {
	d, err := parseDuration(key, value)
	if err != nil {
		return []error{err}
	}
	if value != "" && d <= 0 {
		return []error{fmt.Errorf("%s: must be > 0, got %q", key, value)}
	}
	return nil
}

type lookupPathFunc func(file string) (string, error)

// CheckPrerequisites reports programs cfg relies on that are missing from
// PATH. Validate only checks the shape of cfg.
func CheckPrerequisites(cfg *Config) error {
	return checkPrerequisitesWithLookup(cfg, exec.LookPath)
}

func checkPrerequisitesWithLookup(cfg *Config, lookup lookupPathFunc) error {
	argv := peer.DefaultSearchCommand()
	if cfg != nil && len(cfg.Peer.SearchCommand) > 0 {
		argv = cfg.Peer.SearchCommand
	}
	command := strings.TrimSpace(argv[0])
	if command == "" {
		return nil
	}
	if _, err := lookup(command); err != nil {
		return fmt.Errorf("peer.search_command: %q not found in PATH", command)
	}
	return nil
}
