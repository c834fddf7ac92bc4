// Package peer finds, launches and tracks the optimisation peer process and
// owns the two channel ports used to talk to it.
package peer

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/log"
	"github.com/lydakis/clop/internal/paths"
)

// ErrPeerNotFound reports that no install of the peer could be located.
var ErrPeerNotFound = errors.New("peer not installed")

// Defaults for Options.
const (
	DefaultProcessName   = "Clop"
	DefaultBundleName    = "Clop.app"
	DefaultSearchTimeout = 10 * time.Second
	DefaultLaunchSettle  = 500 * time.Millisecond
	DefaultPollInterval  = 100 * time.Millisecond
)

// DefaultInstallPaths are probed in order before falling back to an index
// search.
var DefaultInstallPaths = []string{
	"/Applications/Setapp/Clop.app",
	"/Applications/Clop.app",
}

// Options configures a Directory. Zero fields take defaults.
type Options struct {
	Namespace     string
	ProcessName   string
	BundleName    string
	InstallPaths  []string
	ChannelDir    string
	SearchTimeout time.Duration
	LaunchSettle  time.Duration
	PollInterval  time.Duration

	Processes ProcessTable
	Searcher  Searcher
	Launcher  Launcher
	Logger    *zerolog.Logger

	// Memo, when set, carries the discovered install path over to later
	// processes. It is consulted after the in-memory path.
	Memo PathMemo
}

// PathMemo persists install paths keyed by bundle name.
type PathMemo interface {
	Get(bundle string) (string, bool)
	Put(bundle, path string) error
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.ProcessName == "" {
		o.ProcessName = DefaultProcessName
	}
	if o.BundleName == "" {
		o.BundleName = DefaultBundleName
	}
	if o.InstallPaths == nil {
		o.InstallPaths = DefaultInstallPaths
	}
	if o.ChannelDir == "" {
		o.ChannelDir = paths.ChannelDir()
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.LaunchSettle <= 0 {
		o.LaunchSettle = DefaultLaunchSettle
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Processes == nil {
		o.Processes = SystemProcesses{}
	}
	if o.Searcher == nil {
		o.Searcher = IndexSearch{}
	}
	if o.Launcher == nil {
		o.Launcher = OpenLauncher{}
	}
	return o
}

// Location describes the peer install the Directory resolved.
type Location struct {
	ExecutablePath string
	Namespace      string
	Running        bool
}

// Result is the outcome of EnsureRunning.
type Result int

const (
	// ResultNotFound means no install could be located.
	ResultNotFound Result = iota
	// ResultRunning means the peer was already running.
	ResultRunning
	// ResultLaunched means the peer was started and observed afterwards.
	ResultLaunched
	// ResultLaunchPending means a launch was requested but the peer was not
	// yet observed when the settle delay ended.
	ResultLaunchPending
	// ResultLaunchFailed means the launcher returned an error.
	ResultLaunchFailed
)

func (r Result) String() string {
	switch r {
	case ResultRunning:
		return "running"
	case ResultLaunched:
		return "launched"
	case ResultLaunchPending:
		return "launch pending"
	case ResultLaunchFailed:
		return "launch failed"
	default:
		return "not found"
	}
}

// Directory tracks where the peer is installed, which namespace it runs
// under, and the ports used to reach it.
type Directory struct {
	opts   Options
	log    zerolog.Logger
	family string

	work *channel.Port
	stop *channel.Port

	mu        sync.Mutex
	namespace string
	path      string // last known install path

	group singleflight.Group

	watchMu sync.Mutex
	sub     *Subscription
}

// New returns a Directory for opts.
func New(opts Options) *Directory {
	opts = opts.withDefaults()
	logger := log.WithComponent("peer")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Directory{
		opts:      opts,
		log:       logger,
		family:    opts.Namespace,
		namespace: opts.Namespace,
		work:      channel.NewPort(opts.ChannelDir, WorkChannel(opts.Namespace)),
		stop:      channel.NewPort(opts.ChannelDir, StopChannel(opts.Namespace)),
	}
}

// Work returns the port for optimisation requests.
func (d *Directory) Work() *channel.Port { return d.work }

// Stop returns the port for stop requests.
func (d *Directory) Stop() *channel.Port { return d.stop }

// ChannelDir returns the directory holding channel sockets.
func (d *Directory) ChannelDir() string { return d.opts.ChannelDir }

// Namespace returns the namespace the ports are currently bound to.
func (d *Directory) Namespace() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.namespace
}

// EnsureRunning makes sure the peer process is running, launching it when an
// install can be found. Concurrent callers share one attempt, which runs
// detached from any single caller and is bounded by attemptTimeout. A caller
// whose ctx ends first gets ResultLaunchPending while the attempt carries on.
func (d *Directory) EnsureRunning(ctx context.Context) Result {
	ch := d.group.DoChan("ensure", func() (any, error) {
		attempt, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.attemptTimeout())
		defer cancel()
		return d.ensure(attempt), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return ResultLaunchPending
	}
}

// launchGrace bounds the launcher itself within a shared attempt.
const launchGrace = 5 * time.Second

func (d *Directory) attemptTimeout() time.Duration {
	return d.opts.SearchTimeout + d.opts.LaunchSettle + launchGrace
}

func (d *Directory) ensure(ctx context.Context) Result {
	path, running := d.discover(ctx)
	if running {
		return ResultRunning
	}
	if path == "" {
		d.log.Debug().Str("bundle", d.opts.BundleName).Msg("no peer install found")
		return ResultNotFound
	}

	d.log.Info().Str("path", path).Msg("launching peer")
	if err := d.opts.Launcher.Launch(ctx, path); err != nil {
		d.log.Warn().Err(err).Str("path", path).Msg("peer launch failed")
		return ResultLaunchFailed
	}

	settle := time.NewTimer(d.opts.LaunchSettle)
	defer settle.Stop()
	select {
	case <-settle.C:
	case <-ctx.Done():
		return ResultLaunchPending
	}

	if _, ok := d.opts.Processes.Find(d.opts.ProcessName); ok || d.work.IsReachable() {
		return ResultLaunched
	}
	return ResultLaunchPending
}

// discover returns the install path and whether the peer is running. The
// process table wins, then the last known path, then the memo, then the
// well-known install locations, then a bounded index search.
func (d *Directory) discover(ctx context.Context) (string, bool) {
	if p, ok := d.opts.Processes.Find(d.opts.ProcessName); ok {
		if p.Path != "" {
			d.remember(p.Path)
		}
		return p.Path, true
	}

	d.mu.Lock()
	known := d.path
	d.mu.Unlock()
	if known != "" && exists(known) {
		return known, false
	}

	if d.opts.Memo != nil {
		if p, ok := d.opts.Memo.Get(d.opts.BundleName); ok && exists(p) {
			d.remember(p)
			return p, false
		}
	}

	for _, p := range d.opts.InstallPaths {
		if exists(p) {
			d.remember(p)
			return p, false
		}
	}

	if p := pickInstall(d.search(ctx), d.opts.BundleName); p != "" {
		d.remember(p)
		return p, false
	}
	return "", false
}

// search runs the index search and gives up after SearchTimeout. A result
// arriving after the deadline is dropped.
func (d *Directory) search(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, d.opts.SearchTimeout)
	defer cancel()

	results := make(chan []string, 1)
	go func() {
		found, err := d.opts.Searcher.Search(ctx, d.opts.BundleName)
		if err != nil {
			d.log.Debug().Err(err).Msg("index search failed")
		}
		results <- found
	}()

	select {
	case found := <-results:
		return found
	case <-ctx.Done():
		d.log.Debug().Dur("timeout", d.opts.SearchTimeout).Msg("index search timed out")
		return nil
	}
}

func (d *Directory) remember(path string) {
	d.mu.Lock()
	changed := d.path != path
	d.path = path
	d.mu.Unlock()

	if changed && d.opts.Memo != nil {
		if err := d.opts.Memo.Put(d.opts.BundleName, path); err != nil {
			d.log.Debug().Err(err).Str("path", path).Msg("peer path not cached")
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Locate resolves the peer install without launching it.
func (d *Directory) Locate(ctx context.Context) (Location, error) {
	path, running := d.discover(ctx)
	if path == "" && !running {
		return Location{}, ErrPeerNotFound
	}
	return Location{ExecutablePath: path, Namespace: d.Namespace(), Running: running}, nil
}

// ObserveNamespace records that a peer of the same family is serving under
// ns and rebinds both ports to it. It reports whether anything changed.
func (d *Directory) ObserveNamespace(ns string) bool {
	if ns == "" || !inFamily(ns, d.family) {
		return false
	}

	if ns == d.Namespace() {
		return false
	}
	proc, found := d.opts.Processes.Find(d.opts.ProcessName)

	d.mu.Lock()
	defer d.mu.Unlock()
	if ns == d.namespace {
		return false
	}
	if found && proc.Path != "" {
		d.path = proc.Path
	}
	d.namespace = ns
	d.work.Rebind(WorkChannel(ns))
	d.stop.Rebind(StopChannel(ns))
	d.log.Info().Str("namespace", ns).Msg("peer namespace changed")
	return true
}

// WaitUntilReady starts the peer if needed and polls until its work channel
// accepts connections or timeout elapses.
func (d *Directory) WaitUntilReady(ctx context.Context, timeout time.Duration) bool {
	if d.work.IsReachable() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go d.EnsureRunning(ctx)

	tick := time.NewTicker(d.opts.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if d.work.IsReachable() {
				return true
			}
		case <-ctx.Done():
			return d.work.IsReachable()
		}
	}
}

// Close stops watching for namespace changes.
func (d *Directory) Close() error {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.sub == nil {
		return nil
	}
	err := d.sub.Cancel()
	d.sub = nil
	return err
}
