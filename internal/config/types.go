package config

// Config is the top-level clop configuration.
type Config struct {
	Namespace  string `toml:"namespace,omitempty"`
	ChannelDir string `toml:"channel_dir,omitempty"`
	Source     string `toml:"source,omitempty"`

	Peer     PeerConfig    `toml:"peer"`
	Timeouts TimeoutConfig `toml:"timeouts"`
	Log      LogConfig     `toml:"log"`
}

// PeerConfig describes how to find and start the peer.
type PeerConfig struct {
	ProcessName   string   `toml:"process_name,omitempty"`
	BundleName    string   `toml:"bundle_name,omitempty"`
	InstallPaths  []string `toml:"install_paths,omitempty"`
	SearchCommand []string `toml:"search_command,omitempty"`
	SearchTimeout string   `toml:"search_timeout,omitempty"`
	LaunchSettle  string   `toml:"launch_settle,omitempty"`
	CacheTTL      string   `toml:"cache_ttl,omitempty"`
}

// TimeoutConfig holds exchange and readiness bounds as duration strings.
type TimeoutConfig struct {
	Send  string `toml:"send,omitempty"`
	Reply string `toml:"reply,omitempty"`
	Ready string `toml:"ready,omitempty"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
}
