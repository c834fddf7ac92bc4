package clop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/log"
	"github.com/lydakis/clop/internal/peer"
)

// Client sends optimisation work to the peer. It is safe for concurrent use;
// requests on the same channel are delivered one at a time.
type Client struct {
	dir      *peer.Directory
	log      zerolog.Logger
	timeouts channel.Timeouts
	source   string

	mu       sync.Mutex
	inFlight []string
}

// New returns a Client. It does not contact or start the peer.
func New(opts ...Option) *Client {
	cfg := clientConfig{source: DefaultSource}
	for _, o := range opts {
		o(&cfg)
	}
	logger := log.WithComponent("client")
	if cfg.logger != nil {
		logger = *cfg.logger
	}
	return &Client{
		dir:      peer.New(cfg.peer),
		log:      logger,
		timeouts: cfg.timeouts,
		source:   cfg.source,
	}
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process-wide Client. It follows namespace changes of
// the running peer.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New()
		if err := defaultClient.Watch(); err != nil {
			defaultClient.log.Debug().Err(err).Msg("peer watch unavailable")
		}
	})
	return defaultClient
}

// Watch follows peer announcements so a peer started under a variant
// namespace is reached without reconfiguration. Calling it again is a no-op.
func (c *Client) Watch() error { return c.dir.Watch() }

// Close stops watching for the peer.
func (c *Client) Close() error { return c.dir.Close() }

// Namespace returns the peer namespace requests are currently sent to.
func (c *Client) Namespace() string { return c.dir.Namespace() }

// ChannelDir returns the directory holding the peer's channel sockets.
func (c *Client) ChannelDir() string { return c.dir.ChannelDir() }

// IsReachable reports whether the peer currently accepts requests.
func (c *Client) IsReachable() bool { return c.dir.Work().IsReachable() }

// EnsureRunning starts the peer if it is installed and not running.
func (c *Client) EnsureRunning(ctx context.Context) peer.Result {
	return c.dir.EnsureRunning(ctx)
}

// WaitUntilReady starts the peer if needed and waits up to timeout for it to
// accept requests.
func (c *Client) WaitUntilReady(ctx context.Context, timeout time.Duration) bool {
	return c.dir.WaitUntilReady(ctx, timeout)
}

// Locate returns where the peer is installed without starting it.
func (c *Client) Locate(ctx context.Context) (peer.Location, error) {
	return c.dir.Locate(ctx)
}

// InFlight returns the inputs of the most recent batch.
func (c *Client) InFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.inFlight...)
}

// Optimise asks the peer to optimise inputs, which are file paths or URLs.
// It returns one response per input in input order. With opts.Background it
// returns nil once the peer has accepted the request.
func (c *Client) Optimise(ctx context.Context, inputs []string, opts Options) ([]OptimisationResponse, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrRequestFailed)
	}
	urls := make([]string, len(inputs))
	for i, in := range inputs {
		u, err := fileURL(in)
		if err != nil {
			return nil, err
		}
		urls[i] = u
	}

	c.mu.Lock()
	c.inFlight = urls
	c.mu.Unlock()

	req := opts.request(uuid.NewString(), urls, c.source)
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	work := c.dir.Work()
	if opts.Background {
		if err := work.SendAndForget(ctx, data, c.timeouts); err != nil {
			return nil, err
		}
		c.log.Debug().Str("id", req.ID).Int("inputs", len(urls)).Msg("request queued")
		return nil, nil
	}

	reply, err := work.SendAndWait(ctx, data, c.timeouts)
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrRequestFailed)
	}
	responses, err := decodeResponses(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %v", ErrRequestFailed, err)
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: no results", ErrRequestFailed)
	}
	return correlate(urls, responses)
}

// OptimiseOne optimises a single input. In the background it returns nil.
func (c *Client) OptimiseOne(ctx context.Context, input string, opts Options) (*OptimisationResponse, error) {
	responses, err := c.Optimise(ctx, []string{input}, opts)
	if err != nil || len(responses) == 0 {
		return nil, err
	}
	return &responses[0], nil
}

// StopCurrentRequests asks the peer to stop working on the most recent
// batch. With remove the peer also discards the partial results. It does
// nothing when no batch was sent. The peer may still answer the original
// request.
func (c *Client) StopCurrentRequests(ctx context.Context, remove bool) error {
	return c.stop(ctx, c.InFlight(), remove)
}

// StopRequests asks the peer to stop working on inputs, which may have been
// submitted by another process. It does nothing for an empty list.
func (c *Client) StopRequests(ctx context.Context, inputs []string, remove bool) error {
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		u, err := fileURL(in)
		if err != nil {
			return err
		}
		ids[i] = u
	}
	return c.stop(ctx, ids, remove)
}

func (c *Client) stop(ctx context.Context, ids []string, remove bool) error {
	if len(ids) == 0 {
		return nil
	}
	data, err := json.Marshal(StopOptimisationRequest{IDs: ids, Remove: remove})
	if err != nil {
		return fmt.Errorf("encoding stop request: %w", err)
	}
	return c.dir.Stop().SendAndForget(ctx, data, c.timeouts)
}

// fileURL turns a path into an absolute file URL. Inputs that already carry
// a scheme pass through.
func fileURL(in string) (string, error) {
	if u, err := url.Parse(in); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return in, nil
	}
	abs, err := filepath.Abs(in)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", in, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// urlKey compares file URLs by path so "file:///a" and "/a" match.
func urlKey(s string) string {
	if u, err := url.Parse(s); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return s
}

// correlate orders responses to match urls. Every input must be answered
// exactly once and nothing else may be answered.
func correlate(urls []string, responses []OptimisationResponse) ([]OptimisationResponse, error) {
	if len(responses) != len(urls) {
		return nil, fmt.Errorf("%w: %d results for %d inputs", ErrRequestFailed, len(responses), len(urls))
	}
	index := make(map[string]int, len(urls))
	for i, u := range urls {
		index[urlKey(u)] = i
	}

	ordered := make([]OptimisationResponse, len(urls))
	seen := make([]bool, len(urls))
	for _, r := range responses {
		i, ok := index[urlKey(r.ForURL)]
		if !ok {
			return nil, fmt.Errorf("%w: result for unknown input %q", ErrRequestFailed, r.ForURL)
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: duplicate result for %q", ErrRequestFailed, r.ForURL)
		}
		seen[i] = true
		ordered[i] = r
	}
	return ordered, nil
}
