package clop

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lydakis/clop/internal/cache"
	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/peer"
)

// DefaultSource tags requests sent through this package.
const DefaultSource = "sdk"

// Options selects what the peer does with a batch. The zero value asks for a
// plain optimisation.
type Options struct {
	Aggressive          bool
	DownscaleFactor     float64 // 0 keeps the original size
	CropSize            *CropSize
	PlaybackSpeedFactor float64 // 0 keeps the original speed
	HideGUI             bool
	CopyToClipboard     bool
	Background          bool // send without waiting for results
	Output              string
	RemoveAudio         bool
}

func (o Options) request(id string, urls []string, source string) OptimisationRequest {
	req := OptimisationRequest{
		ID:                     id,
		URLs:                   urls,
		OriginalURLs:           URLMap{},
		Size:                   o.CropSize,
		HideFloatingResult:     o.HideGUI,
		CopyToClipboard:        o.CopyToClipboard,
		AggressiveOptimisation: o.Aggressive,
		Source:                 source,
	}
	if o.DownscaleFactor > 0 {
		f := o.DownscaleFactor
		req.DownscaleFactor = &f
	}
	if o.PlaybackSpeedFactor > 0 {
		f := o.PlaybackSpeedFactor
		req.ChangePlaybackSpeedFactor = &f
	}
	if o.Output != "" {
		out := o.Output
		req.Output = &out
	}
	if o.RemoveAudio {
		t := true
		req.RemoveAudio = &t
	}
	return req
}

type clientConfig struct {
	peer     peer.Options
	timeouts channel.Timeouts
	source   string
	logger   *zerolog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

// WithNamespace sets the peer identity prefix channel names derive from.
func WithNamespace(ns string) Option {
	return func(c *clientConfig) { c.peer.Namespace = ns }
}

// WithChannelDir sets the directory holding the peer's channel sockets.
func WithChannelDir(dir string) Option {
	return func(c *clientConfig) { c.peer.ChannelDir = dir }
}

// WithInstallPaths replaces the well-known install locations probed before
// an index search.
func WithInstallPaths(paths ...string) Option {
	return func(c *clientConfig) { c.peer.InstallPaths = append([]string{}, paths...) }
}

// WithProcessName sets the process name looked up in the process table.
func WithProcessName(name string) Option {
	return func(c *clientConfig) { c.peer.ProcessName = name }
}

// WithBundleName sets the install file name the index search matches.
func WithBundleName(name string) Option {
	return func(c *clientConfig) { c.peer.BundleName = name }
}

// WithSearchCommand replaces the index search command. "{name}" in any
// argument is replaced by the bundle name.
func WithSearchCommand(argv ...string) Option {
	return func(c *clientConfig) { c.peer.Searcher = peer.IndexSearch{Command: argv} }
}

// WithSearchTimeout bounds the index search.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.peer.SearchTimeout = d }
}

// WithLaunchSettle sets how long EnsureRunning waits after a launch before
// checking on the peer.
func WithLaunchSettle(d time.Duration) Option {
	return func(c *clientConfig) { c.peer.LaunchSettle = d }
}

// WithInstallCache remembers the discovered install path on disk for ttl so
// later processes skip the index search.
func WithInstallCache(ttl time.Duration) Option {
	return func(c *clientConfig) { c.peer.Memo = cache.Installs(ttl) }
}

// WithTimeouts sets the send and reply bounds. Zero keeps the default.
func WithTimeouts(send, reply time.Duration) Option {
	return func(c *clientConfig) { c.timeouts = channel.Timeouts{Send: send, Reply: reply} }
}

// WithSource sets the source tag carried in each request.
func WithSource(source string) Option {
	return func(c *clientConfig) { c.source = source }
}

// WithLogger sets the logger used by the client and its peer directory.
func WithLogger(l zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = &l
		c.peer.Logger = &l
	}
}
