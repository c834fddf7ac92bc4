// Package config loads the clop TOML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lydakis/clop"
	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/paths"
	"github.com/lydakis/clop/internal/peer"
)

const (
	// DefaultReadyTimeout bounds how long commands wait for the peer to start.
	DefaultReadyTimeout = 5 * time.Second
	// DefaultInstallCacheTTL is written by `config init`.
	DefaultInstallCacheTTL = 24 * time.Hour
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the config file and returns the parsed Config.
// If the config file does not exist, it returns an empty Config (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path. ${ENV_VAR}
// placeholders in string values are expanded.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	expandConfigEnvVars(&cfg)
	return &cfg, nil
}

// Default returns a Config with every setting spelled out, for `config init`.
func Default() *Config {
	return &Config{
		Namespace: peer.DefaultNamespace,
		Source:    clop.DefaultSource,
		Peer: PeerConfig{
			ProcessName:   peer.DefaultProcessName,
			BundleName:    peer.DefaultBundleName,
			InstallPaths:  append([]string(nil), peer.DefaultInstallPaths...),
			SearchCommand: peer.DefaultSearchCommand(),
			SearchTimeout: peer.DefaultSearchTimeout.String(),
			LaunchSettle:  peer.DefaultLaunchSettle.String(),
			CacheTTL:      DefaultInstallCacheTTL.String(),
		},
		Timeouts: TimeoutConfig{
			Send:  channel.DefaultSendTimeout.String(),
			Reply: channel.DefaultReplyTimeout.String(),
			Ready: DefaultReadyTimeout.String(),
		},
		Log: LogConfig{Level: "warn"},
	}
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

// ClientOptions translates cfg into client options. Unset values keep the
// client defaults. Call Validate first; malformed durations are reported
// here too.
func (cfg *Config) ClientOptions() ([]clop.Option, error) {
	if cfg == nil {
		return nil, nil
	}
	var opts []clop.Option
	if cfg.Namespace != "" {
		opts = append(opts, clop.WithNamespace(cfg.Namespace))
	}
	if cfg.ChannelDir != "" {
		opts = append(opts, clop.WithChannelDir(cfg.ChannelDir))
	}
	if cfg.Source != "" {
		opts = append(opts, clop.WithSource(cfg.Source))
	}
	if cfg.Peer.ProcessName != "" {
		opts = append(opts, clop.WithProcessName(cfg.Peer.ProcessName))
	}
	if cfg.Peer.BundleName != "" {
		opts = append(opts, clop.WithBundleName(cfg.Peer.BundleName))
	}
	if cfg.Peer.InstallPaths != nil {
		opts = append(opts, clop.WithInstallPaths(cfg.Peer.InstallPaths...))
	}
	if len(cfg.Peer.SearchCommand) > 0 {
		opts = append(opts, clop.WithSearchCommand(cfg.Peer.SearchCommand...))
	}

	searchTimeout, err := parseDuration("peer.search_timeout", cfg.Peer.SearchTimeout)
	if err != nil {
		return nil, err
	}
	if searchTimeout > 0 {
		opts = append(opts, clop.WithSearchTimeout(searchTimeout))
	}
	settle, err := parseDuration("peer.launch_settle", cfg.Peer.LaunchSettle)
	if err != nil {
		return nil, err
	}
	if settle > 0 {
		opts = append(opts, clop.WithLaunchSettle(settle))
	}
	cacheTTL, err := parseDuration("peer.cache_ttl", cfg.Peer.CacheTTL)
	if err != nil {
		return nil, err
	}
	if cacheTTL > 0 {
		opts = append(opts, clop.WithInstallCache(cacheTTL))
	}

	send, err := parseDuration("timeouts.send", cfg.Timeouts.Send)
	if err != nil {
		return nil, err
	}
	reply, err := parseDuration("timeouts.reply", cfg.Timeouts.Reply)
	if err != nil {
		return nil, err
	}
	if send > 0 || reply > 0 {
		opts = append(opts, clop.WithTimeouts(send, reply))
	}
	return opts, nil
}

// ReadyTimeout returns timeouts.ready, or DefaultReadyTimeout when unset or
// invalid.
func (cfg *Config) ReadyTimeout() time.Duration {
	if cfg == nil {
		return DefaultReadyTimeout
	}
	d, err := parseDuration("timeouts.ready", cfg.Timeouts.Ready)
	if err != nil || d <= 0 {
		return DefaultReadyTimeout
	}
	return d
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, s, err)
	}
	return d, nil
}

func expandConfigEnvVars(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Namespace = expandEnvVars(cfg.Namespace)
	cfg.ChannelDir = expandEnvVars(cfg.ChannelDir)
	cfg.Source = expandEnvVars(cfg.Source)
	cfg.Peer.ProcessName = expandEnvVars(cfg.Peer.ProcessName)
	cfg.Peer.BundleName = expandEnvVars(cfg.Peer.BundleName)
	for i := range cfg.Peer.InstallPaths {
		cfg.Peer.InstallPaths[i] = expandEnvVars(cfg.Peer.InstallPaths[i])
	}
	for i := range cfg.Peer.SearchCommand {
		cfg.Peer.SearchCommand[i] = expandEnvVars(cfg.Peer.SearchCommand[i])
	}
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}
